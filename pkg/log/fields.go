package log

import (
	"fmt"

	"go.uber.org/zap"
)

// toFields turns a loose key/value list into zap fields. Bare errors and
// zap.Field values are accepted without a key; a trailing unpaired value is
// kept under a positional key so nothing is silently dropped.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		name, ok := key.(string)
		if !ok {
			name = fmt.Sprintf("%v", key)
		}

		switch v := val.(type) {
		case error:
			fields = append(fields, zap.NamedError(name, v))
		case fmt.Stringer:
			fields = append(fields, zap.Stringer(name, v))
		default:
			fields = append(fields, zap.Any(name, v))
		}
	}

	return fields
}
