// Package sonde provides state-machine-driven control middleware for
// oceanographic instruments.
//
// The dispatch engine is in package 'fsm', the resource agent that
// rides on it is in package 'agent', and a hosting daemon is in
// 'cmd/sonded'.
//
// See https://github.com/Comcast/sonde/blob/master/README.md for more.
package sonde
