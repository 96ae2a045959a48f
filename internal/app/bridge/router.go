package bridge

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Poltergeis/api-local-websockets/internal/app/stats"
	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Request is one decoded client frame. Tiempo selects the comparison
// window for query events; Body.Valor carries the reading for inserts.
type Request struct {
	Event  string      `json:"event"`
	Tiempo string      `json:"tiempo"`
	Body   RequestBody `json:"body"`
}

type RequestBody struct {
	Valor json.RawMessage `json:"valor"`
}

const (
	EventGetBPM     = "getBPMRecords"
	EventGetTemp    = "getTempRecords"
	EventInsertBPM  = "insertBPMRecords"
	EventInsertTemp = "insertTempRecords"
)

// Router dispatches client requests to the aggregation engine or the
// record store. Every request, well-formed or not, yields exactly one
// reply frame so clients never wait on a silently dropped message.
type Router struct {
	engine *stats.Engine
	store  ports.RecordStore
	obs    ports.Observability
}

func NewRouter(engine *stats.Engine, store ports.RecordStore, obs ports.Observability) *Router {
	return &Router{engine: engine, store: store, obs: obs}
}

// Handle processes one raw request frame and returns the reply frame.
func (r *Router) Handle(ctx context.Context, raw []byte) []byte {
	r.obs.IncCounter(ports.MetricRequests, 1)

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		r.obs.LogWarn("malformed request frame",
			ports.Field{Key: "error", Value: err.Error()})
		return failureFrame("malformed request")
	}

	switch req.Event {
	case EventGetBPM:
		return r.query(ctx, domain.MetricHeartRate, req.Tiempo)
	case EventGetTemp:
		return r.query(ctx, domain.MetricTemperature, req.Tiempo)
	case EventInsertBPM:
		return r.insert(ctx, domain.MetricHeartRate, req.Body.Valor)
	case EventInsertTemp:
		return r.insert(ctx, domain.MetricTemperature, req.Body.Valor)
	default:
		r.obs.LogWarn("unsupported event",
			ports.Field{Key: "event", Value: req.Event})
		return failureFrame("unsupported event")
	}
}

func (r *Router) query(ctx context.Context, metric domain.Metric, tiempo string) []byte {
	g := domain.Granularity(tiempo)
	switch g {
	case domain.GranularityDay, domain.GranularityWeek, domain.GranularityMonth:
	default:
		r.obs.LogWarn("unsupported tiempo",
			ports.Field{Key: "tiempo", Value: tiempo})
		return failureFrame("unsupported tiempo")
	}

	res := r.engine.Search(ctx, metric, g)
	return marshalReply(res)
}

func (r *Router) insert(ctx context.Context, metric domain.Metric, valor json.RawMessage) []byte {
	v, ok := parseValor(valor)
	if !ok {
		return marshalReply(domain.InsertResult{Success: false, Message: "invalid value"})
	}

	if _, err := r.store.Insert(ctx, metric, v, time.Now().UTC()); err != nil {
		r.obs.LogError("record insert failed", err,
			ports.Field{Key: "metric", Value: string(metric)})
		return marshalReply(domain.InsertResult{Success: false, Message: "insert failed"})
	}
	return marshalReply(domain.InsertResult{Success: true, Message: "record inserted"})
}

// parseValor accepts a finite JSON number or a string holding one,
// matching the numeric coercion the embedded devices were built
// against. ParseFloat also accepts "NaN" and "Inf", which must never
// reach the store: a single non-finite record poisons every mean
// computed over its window.
func parseValor(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	return num, true
}

func failureFrame(msg string) []byte {
	return marshalReply(domain.InsertResult{Success: false, Message: msg})
}

// marshalReply never lets an encode error escape to the pump goroutine:
// a reply that cannot be serialized (a non-finite mean from legacy
// rows, say) degrades to a structured failure frame.
func marshalReply(v any) []byte {
	out, err := json.Marshal(v)
	if err == nil {
		return out
	}
	out, err = json.Marshal(domain.InsertResult{Success: false, Message: "internal error"})
	if err != nil {
		// InsertResult is a plain struct of string and bool fields.
		panic(err)
	}
	return out
}
