//go:build !windows

package config

func defaultPort() string { return "/dev/ttyACM0" }
