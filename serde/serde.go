package serde

type Serde[T any] interface {
	Serializer[T]
	Deserializer[T]
}

type Serializer[T any] interface {
	Serialize(topic string, value T) ([]byte, error)
}

type Deserializer[T any] interface {
	Deserialize(topic string, data []byte) (T, error)
}

type UntypedSerializer interface {
	Serialize(topic string, value any) ([]byte, error)
}

type UntypedDeserializer interface {
	Deserialize(topic string, data []byte) (any, error)
}

type UntypedSerde interface {
	UntypedSerializer
	UntypedDeserializer
}

// Erase adapts a typed Serde[T] to the UntypedSerde interface the topology
// graph works with internally, so source/sink nodes declared with concrete
// types can be wired into the untyped node graph.
func Erase[T any](s Serde[T]) UntypedSerde {
	return erasedSerde[T]{s}
}

type erasedSerde[T any] struct {
	inner Serde[T]
}

func (e erasedSerde[T]) Serialize(topic string, value any) ([]byte, error) {
	typed, _ := value.(T)
	return e.inner.Serialize(topic, typed)
}

func (e erasedSerde[T]) Deserialize(topic string, data []byte) (any, error) {
	return e.inner.Deserialize(topic, data)
}
