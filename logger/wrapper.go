package logger

type LevelWrapper struct {
	Base
}

func WrapLogger(l Base) Logger {
	return &LevelWrapper{l}
}

func (w *LevelWrapper) Debug(msg string, kv ...any) {
	w.Log(DebugLevel, msg, kv...)
}

func (w *LevelWrapper) Info(msg string, kv ...any) {
	w.Log(InfoLevel, msg, kv...)
}

func (w *LevelWrapper) Warn(msg string, kv ...any) {
	w.Log(WarnLevel, msg, kv...)
}

func (w *LevelWrapper) Error(msg string, kv ...any) {
	w.Log(ErrorLevel, msg, kv...)
}

func (w *LevelWrapper) With(kv ...any) Logger {
	return WrapLogger(&boundBase{base: w.Base, kv: kv})
}

// boundBase prepends a fixed set of key-value pairs to every Log call,
// letting a component derive a scoped logger (e.g. "client", "kgo") without
// every call site repeating the fields.
type boundBase struct {
	base Base
	kv   []any
}

func (b *boundBase) Level() LogLevel {
	return b.base.Level()
}

func (b *boundBase) Log(level LogLevel, msg string, kv ...any) {
	b.base.Log(level, msg, append(append([]any{}, b.kv...), kv...)...)
}
