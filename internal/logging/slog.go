package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// field is an attribute flattened to its final dotted key.
type field struct {
	key   string
	value slog.Value
}

// SlogHandler implements slog.Handler on top of a zerolog logger. Group
// names are joined into dotted keys; attributes bound with WithAttrs keep
// the prefix that was open when they were bound.
type SlogHandler struct {
	logger zerolog.Logger
	bound  []field
	prefix string
}

func NewSlogHandler(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toZerolog(level) >= h.logger.GetLevel()
}

func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.bound)+record.NumAttrs())
	fields = append(fields, h.bound...)
	record.Attrs(func(a slog.Attr) bool {
		fields = flatten(fields, h.prefix, a)
		return true
	})

	event := h.logger.WithLevel(toZerolog(record.Level))
	for _, f := range fields {
		event = put(event, f)
	}
	event.Msg(record.Message)
	return nil
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	bound := append([]field(nil), h.bound...)
	for _, a := range attrs {
		bound = flatten(bound, h.prefix, a)
	}
	return &SlogHandler{logger: h.logger, bound: bound, prefix: h.prefix}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, bound: h.bound, prefix: h.prefix + name + "."}
}

// flatten appends a, and the members of a group value, under prefix.
// Empty attributes are dropped and groups with an empty key are inlined.
func flatten(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() != slog.KindGroup {
		return append(dst, field{key: prefix + a.Key, value: a.Value})
	}
	if a.Key != "" {
		prefix += a.Key + "."
	}
	for _, member := range a.Value.Group() {
		dst = flatten(dst, prefix, member)
	}
	return dst
}

func put(event *zerolog.Event, f field) *zerolog.Event {
	v := f.value
	switch v.Kind() {
	case slog.KindString:
		return event.Str(f.key, v.String())
	case slog.KindInt64:
		return event.Int64(f.key, v.Int64())
	case slog.KindUint64:
		return event.Uint64(f.key, v.Uint64())
	case slog.KindFloat64:
		return event.Float64(f.key, v.Float64())
	case slog.KindBool:
		return event.Bool(f.key, v.Bool())
	case slog.KindDuration:
		return event.Dur(f.key, v.Duration())
	case slog.KindTime:
		return event.Time(f.key, v.Time())
	}
	if err, ok := v.Any().(error); ok {
		return event.AnErr(f.key, err)
	}
	return event.Interface(f.key, v.Any())
}

func toZerolog(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
