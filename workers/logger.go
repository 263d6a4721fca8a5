package workers

import "techline/models"

// LogFunc mirrors worker log lines into the operational store.
type LogFunc func(level models.LogLevel, message string)

// NoOpLogger does nothing (default)
var NoOpLogger LogFunc = func(level models.LogLevel, message string) {}
