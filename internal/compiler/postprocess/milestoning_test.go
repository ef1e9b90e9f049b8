package postprocess_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metacore/internal/compiler/compilertest"
	"github.com/conduit-lang/metacore/internal/compiler/postprocess"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

const milestonedModel = `
class "my::Product" {
  stereotypes = ["temporal.businesstemporal"]
  property "name" {
    type = "String"
  }
}

class "my::Order" {
  property "id" {
    type = "Integer"
  }
  property "product" {
    type         = "my::Product"
    multiplicity = "0..1"
  }
}

class "my::Shipment" {
  stereotypes = ["temporal.businesstemporal"]
  property "product" {
    type = "my::Product"
  }
}

class "my::Account" {
  stereotypes = ["temporal.bitemporal"]
}
`

func names(instances []model.CoreInstance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.Name()
	}
	return out
}

func ids(instances []model.CoreInstance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = navigation.StringValue(inst, metamodel.PropID)
	}
	return out
}

// TestMilestoning_TemporalClassGainsDateProperties tests generated date properties.
func TestMilestoning_TemporalClassGainsDateProperties(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(milestonedModel)

	product := f.Element("my::Product")
	assert.Equal(t, []string{"name", "businessDate", "milestoning"}, names(product.ValuesToMany(metamodel.PropProperties)))

	businessDate := f.Property(product, "businessDate")
	assert.Equal(t, "Date", f.TypeName(businessDate.ValueToOne(metamodel.PropGenericType)))
	assert.Same(t, product, businessDate.ValueToOne(metamodel.PropOwner))
	assert.True(t, postprocess.IsGenerated(f.Support, businessDate, metamodel.GeneratedMilestoningDateProperty))
	assert.True(t, businessDate.SourceInformation().Equal(product.SourceInformation()))

	milestoning := f.Property(product, "milestoning")
	assert.Equal(t, metamodel.BusinessDateMilestoning, f.TypeName(milestoning.ValueToOne(metamodel.PropGenericType)))

	account := f.Element("my::Account")
	assert.Equal(t, []string{"processingDate", "businessDate", "milestoning"}, names(account.ValuesToMany(metamodel.PropProperties)))
	assert.Equal(t, metamodel.BiTemporal, postprocess.TemporalStereotype(f.Support, account))
	assert.Empty(t, postprocess.TemporalStereotype(f.Support, f.Element("my::Order")))
}

func TestMilestoning_PropertyToTemporalClass(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(milestonedModel)

	order := f.Element("my::Order")
	properties := order.ValuesToMany(metamodel.PropProperties)
	assert.Equal(t, []string{"id", "productAllVersions"}, names(properties))

	edge := properties[1]
	assert.True(t, postprocess.IsGenerated(f.Support, edge, metamodel.GeneratedMilestoningProperty))
	lower, upper := navigation.MultiplicityBounds(edge.ValueToOne(metamodel.PropMultiplicity))
	assert.Equal(t, [2]int{0, metamodel.Unbounded}, [2]int{lower, upper})

	originals := order.ValuesToMany(metamodel.PropOriginalMilestonedProperties)
	require.Len(t, originals, 1)
	assert.Equal(t, "product", originals[0].Name())
	assert.True(t, edge.SourceInformation().Equal(originals[0].SourceInformation()))

	// Order is not temporal: only the dated accessor is generated.
	assert.Equal(t, []string{"product(Date[1])"}, ids(order.ValuesToMany(metamodel.PropQualifiedProperties)))

	shipment := f.Element("my::Shipment")
	assert.Equal(t, []string{"product(Date[1])", "product()"}, ids(shipment.ValuesToMany(metamodel.PropQualifiedProperties)))

	found, err := f.Support.ClassPropertyByName(shipment, "product")
	require.NoError(t, err)
	assert.Equal(t, "product()", navigation.StringValue(found, metamodel.PropID))
}

func TestMilestoning_AssociationToTemporalClass(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(`
class "my::Product" {
  stereotypes = ["temporal.processingtemporal"]
}
class "my::Catalog" {}

association "my::Listing" {
  property "products" {
    type         = "my::Product"
    multiplicity = "*"
  }
  property "catalog" {
    type = "my::Catalog"
  }
}
`)
	catalog := f.Element("my::Catalog")
	product := f.Element("my::Product")
	listing := f.Element("my::Listing")

	assert.Equal(t, []string{"productsAllVersions", "catalog"}, names(listing.ValuesToMany(metamodel.PropProperties)))
	assert.Equal(t, []string{"products"}, names(listing.ValuesToMany(metamodel.PropOriginalMilestonedProperties)))
	assert.Equal(t, []string{"productsAllVersions"}, names(catalog.ValuesToMany(metamodel.PropPropertiesFromAssociations)))
	assert.Equal(t, []string{"products(Date[1])"}, ids(catalog.ValuesToMany(metamodel.PropQualifiedPropertiesFromAssociations)))
	assert.Equal(t, []string{"catalog"}, names(product.ValuesToMany(metamodel.PropPropertiesFromAssociations)))
}

func TestMilestoning_FunctionUsesGeneratedDate(t *testing.T) {
	f := compilertest.New(t)
	f.MustCompile(milestonedModel, `
function "my::getDate" {
  parameter "p" {
    type = "my::Product"
  }
  return_type = "Date"
  body        = [p.businessDate]
}
`)
	product := f.Element("my::Product")
	body := f.Element("my::getDate").ValueToOne(metamodel.PropExpressionSequence)
	assert.Same(t, f.Property(product, "businessDate"), body.ValueToOne(metamodel.PropFunc))
	assert.Equal(t, "Date", f.TypeName(body.ValueToOne(metamodel.PropGenericType)))
}
