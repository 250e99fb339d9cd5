package qdrant

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ralphsbaesso/mba-ia-desafio-ingestao-busca/schema"
)

// documentToPayload stores the chunk text under page_content next to the
// metadata keys, so payloads stay readable by LangChain's Qdrant store.
func documentToPayload(doc schema.Document) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(doc.Metadata)+1)
	for key, value := range doc.Metadata {
		payload[key] = toValue(value)
	}
	payload[contentKey] = qdrant.NewValueString(doc.PageContent)
	return payload
}

func toValue(value any) *qdrant.Value {
	switch v := value.(type) {
	case []string:
		values := make([]*qdrant.Value, len(v))
		for i, str := range v {
			values[i] = qdrant.NewValueString(str)
		}
		return qdrant.NewValueFromList(values...)
	case []any:
		values := make([]*qdrant.Value, len(v))
		for i, item := range v {
			values[i] = toValue(item)
		}
		return qdrant.NewValueFromList(values...)
	}
	if qv, err := qdrant.NewValue(value); err == nil {
		return qv
	}
	return qdrant.NewValueString(fmt.Sprintf("%v", value))
}

func payloadToDocument(payload map[string]*qdrant.Value) schema.Document {
	doc := schema.Document{Metadata: make(map[string]any, len(payload))}
	for key, value := range payload {
		if key == contentKey {
			doc.PageContent = value.GetStringValue()
			continue
		}
		if converted := fromValue(value); converted != nil {
			doc.Metadata[key] = converted
		}
	}
	return doc
}

func fromValue(value *qdrant.Value) any {
	switch v := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return int(v.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(v.ListValue.GetValues()))
		for i, item := range v.ListValue.GetValues() {
			list[i] = fromValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(v.StructValue.GetFields()))
		for k, item := range v.StructValue.GetFields() {
			fields[k] = fromValue(item)
		}
		return fields
	default:
		return nil
	}
}

// buildQdrantFilter turns equality filters into must-match conditions.
// Whole floats match as integers, since JSON decoders produce float64.
func buildQdrantFilter(filters map[string]any, logger *slog.Logger) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(filters))
	for key, value := range filters {
		switch v := value.(type) {
		case string:
			conditions = append(conditions, qdrant.NewMatch(key, v))
		case bool:
			conditions = append(conditions, qdrant.NewMatchBool(key, v))
		case int:
			conditions = append(conditions, qdrant.NewMatchInt(key, int64(v)))
		case int64:
			conditions = append(conditions, qdrant.NewMatchInt(key, v))
		case float64:
			if v != math.Trunc(v) {
				logger.Warn("Unsupported filter value", "key", key, "value", v)
				continue
			}
			conditions = append(conditions, qdrant.NewMatchInt(key, int64(v)))
		case []string:
			conditions = append(conditions, qdrant.NewMatchKeywords(key, v...))
		case []int:
			ints := make([]int64, len(v))
			for i, n := range v {
				ints[i] = int64(n)
			}
			conditions = append(conditions, qdrant.NewMatchInts(key, ints...))
		default:
			logger.Warn("Unsupported filter type for key", "key", key, "type", fmt.Sprintf("%T", v))
		}
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}
