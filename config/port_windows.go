package config

func defaultPort() string { return "COM5" }
