package actions

import "nathanbeddoewebdev/actionmgr/internal/registry"

// NewViewRegistry returns an empty view type registry.
func NewViewRegistry() *registry.Registry[ViewSpec] {
	return registry.New[ViewSpec]("view type")
}

// NewClientRegistry returns an empty client action registry.
func NewClientRegistry() *registry.Registry[ClientAction] {
	return registry.New[ClientAction]("client action")
}
