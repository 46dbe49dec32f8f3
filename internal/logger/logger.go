package logger

import "go.uber.org/zap"

var Log *zap.Logger

func Init() {
	l, _ := zap.NewProduction()
	Log = l
}

// Critical marks financial drift the engine cannot repair on its own
// (a win that could not be paid, a debit left without a terminal state).
// Alerting filters on severity=critical; ordinary retry exhaustion does
// not qualify.
func Critical(msg string, fields ...zap.Field) {
	Log.Error(msg, append(fields, zap.String("severity", "critical"))...)
}
