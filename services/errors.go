package services

import "errors"

var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrWorkspaceProtected = errors.New("default workspace cannot be deleted")
	ErrTaskNotFound       = errors.New("task not found")
	ErrForbidden          = errors.New("access forbidden: insufficient permissions")
	ErrValidation         = errors.New("invalid task payload")
)
