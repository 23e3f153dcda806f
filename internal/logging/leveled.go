package logging

import "fmt"

// FieldLogger is the field-map logging contract.
type FieldLogger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Leveled adapts a FieldLogger to the key/value LeveledLogger shape used by
// go-retryablehttp.
type Leveled struct {
	logger FieldLogger
}

// NewLeveled wraps logger.
func NewLeveled(logger FieldLogger) *Leveled {
	return &Leveled{logger: logger}
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, pairs(keysAndValues))
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, pairs(keysAndValues))
}

// Debug is used by go-retryablehttp for every request, so it stays at debug.
func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, pairs(keysAndValues))
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, pairs(keysAndValues))
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+1)

	for index := 0; index < len(keysAndValues); index += 2 {
		key := fmt.Sprint(keysAndValues[index])
		if index+1 < len(keysAndValues) {
			fields[key] = keysAndValues[index+1]
		} else {
			fields[key] = nil
		}
	}

	return fields
}
