package serde

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

type protobufSerde[T proto.Message] struct{}

// Protobuf returns a Serde backed by google.golang.org/protobuf. T is
// expected to be a pointer to a generated message type.
func Protobuf[T proto.Message]() Serde[T] {
	return protobufSerde[T]{}
}

func (s protobufSerde[T]) Serialize(_ string, value T) ([]byte, error) {
	return proto.Marshal(value)
}

func (s protobufSerde[T]) Deserialize(_ string, data []byte) (T, error) {
	var zero T

	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Ptr {
		return zero, fmt.Errorf("protobuf deserialize: %T is not a pointer message type", zero)
	}

	msg, ok := reflect.New(rt.Elem()).Interface().(T)
	if !ok {
		return zero, fmt.Errorf("protobuf deserialize: cannot construct %T", zero)
	}

	if err := proto.Unmarshal(data, msg); err != nil {
		return zero, err
	}

	return msg, nil
}
