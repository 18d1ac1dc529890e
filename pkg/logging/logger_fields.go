package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Diagram field helpers

func Component(name string) Field {
	return String("component", name)
}

func AssetID(id string) Field {
	return String("asset_id", id)
}

func GroupID(id string) Field {
	return String("group_id", id)
}

func RelationID(id string) Field {
	return String("relation_id", id)
}

func EntityID(id string) Field {
	return String("entity_id", id)
}

func Operation(op string) Field {
	return String("operation", op)
}

func State(s string) Field {
	return String("state", s)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}
