package room

import "errors"

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrRoomAlreadyExists     = errors.New("room already exists")
	ErrMemberNotFound        = errors.New("member not found")
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrTransferAlreadyExists = errors.New("transfer already exists")
	ErrTransferOverflow      = errors.New("received bytes exceed declared file size")
	ErrTransferIncomplete    = errors.New("received bytes do not match declared file size")
)
