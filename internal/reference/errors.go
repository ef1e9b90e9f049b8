package reference

import (
	"errors"
	"fmt"
)

// ErrUnknownVersion is returned for versions no extension provides.
var ErrUnknownVersion = errors.New("unknown reference id version")

// ProvisionError reports an instance without a derivable reference id.
type ProvisionError struct {
	Instance string
	Reason   string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("cannot provide a reference id for %s: %s", e.Instance, e.Reason)
}

// InvalidIDError reports a reference id that is not well formed.
type InvalidIDError struct {
	ID     string
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid reference id %q: %s", e.ID, e.Reason)
}

// UnresolvableIDError reports a well-formed reference id that denotes no instance.
type UnresolvableIDError struct {
	ID     string
	Reason string
}

func (e *UnresolvableIDError) Error() string {
	return fmt.Sprintf("cannot resolve reference id %q: %s", e.ID, e.Reason)
}
