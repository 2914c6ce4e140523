package dinia

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveContainer is reported when a store is used without an explicit
	// container and none is active.
	ErrNoActiveContainer = errors.New("dinia: no active container, pass one explicitly or activate one first")
	// ErrMissingStoreID is reported when a definition has no id.
	ErrMissingStoreID = errors.New("dinia: a store must be given an id")
	// ErrNotSupported is reported by operations a store cannot perform.
	ErrNotSupported = errors.New("dinia: operation not supported")
	// ErrCircularStore is reported when a store is requested while it is being
	// created.
	ErrCircularStore = errors.New("dinia: circular store creation")
)

// ConfigurationError reports a malformed store definition or container setup.
type ConfigurationError struct {
	StoreID string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StoreID == "" {
		return fmt.Sprintf("dinia: configuration: %v", e.Err)
	}
	return fmt.Sprintf("dinia: configuration of store %q: %v", e.StoreID, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NoActiveContainerError is returned when a store accessor cannot resolve a
// container. It matches ErrNoActiveContainer.
type NoActiveContainerError struct {
	StoreID string
}

func (e *NoActiveContainerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StoreID == "" {
		return ErrNoActiveContainer.Error()
	}
	return fmt.Sprintf("%v (store %q)", ErrNoActiveContainer, e.StoreID)
}

func (e *NoActiveContainerError) Unwrap() error {
	return ErrNoActiveContainer
}

// NotSupportedError is returned by store operations unavailable for the store
// form, such as Reset on a setup store that did not opt in.
type NotSupportedError struct {
	StoreID   string
	Operation string
}

func (e *NotSupportedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("dinia: store %q: %s is not supported", e.StoreID, e.Operation)
}

func (e *NotSupportedError) Unwrap() error {
	return ErrNotSupported
}

// PluginError reports a plugin that failed while a store was being created.
type PluginError struct {
	StoreID string
	Index   int
	Err     error
}

func (e *PluginError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("dinia: plugin #%d failed for store %q: %v", e.Index, e.StoreID, e.Err)
}

func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func configErr(id string, err error) error {
	return &ConfigurationError{StoreID: id, Err: err}
}
