package client

import "errors"

var (
	ErrNotConnected = errors.New("not connected")
)
