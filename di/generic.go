package di

import (
	"context"
	"reflect"
)

// TypeOf returns the service type key for T. Interface types work as keys:
//
//	di.TypeOf[Logger]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register binds T to producer on inj.
func Register[T any](inj *Injector, producer Producer, opts ...RegisterOption) error {
	return inj.Register(TypeOf[T](), producer, opts...)
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](inj *Injector, producer Producer, opts ...RegisterOption) {
	inj.MustRegister(TypeOf[T](), producer, opts...)
}

// Resolve resolves T from inj.
func Resolve[T any](ctx context.Context, inj *Injector) (T, error) {
	var zero T
	inst, err := inj.GetInstance(ctx, TypeOf[T]())
	if err != nil {
		return zero, err
	}
	if inst == nil {
		return zero, nil
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, errTypeMismatch(reflect.TypeOf(inst), TypeOf[T]())
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, inj *Injector) T {
	v, err := Resolve[T](ctx, inj)
	if err != nil {
		panic(err)
	}
	return v
}

// IsRegisteredType reports whether T has a binding on inj.
func IsRegisteredType[T any](inj *Injector) bool {
	return inj.IsRegistered(TypeOf[T]())
}
