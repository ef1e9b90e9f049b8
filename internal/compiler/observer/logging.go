package observer

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/metacore/internal/model"
)

// Logging reports processing to a zap logger at debug level and failures at warn level.
type Logging struct {
	logger *zap.Logger
}

// NewLogging creates a logging observer; a nil logger discards output.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{logger: logger}
}

func (l *Logging) StartProcessing(instance model.CoreInstance) error {
	l.logger.Debug("start processing", instanceFields(instance)...)
	return nil
}

func (l *Logging) FinishProcessing(instance model.CoreInstance) error {
	l.logger.Debug("finish processing", instanceFields(instance)...)
	return nil
}

func (l *Logging) FinishProcessingWithError(instance model.CoreInstance, cause error) error {
	l.logger.Warn("processing failed", append(instanceFields(instance), zap.Error(cause))...)
	return nil
}

func instanceFields(instance model.CoreInstance) []zap.Field {
	fields := []zap.Field{zap.String("instance", instance.Name()), zap.Int64("id", instance.ID())}
	if c := instance.Classifier(); c != nil {
		fields = append(fields, zap.String("classifier", c.Name()))
	}
	return fields
}
