package queue

import "go.uber.org/zap"

// asynqLogger adapts zap to asynq.Logger.
type asynqLogger struct {
	log *zap.SugaredLogger
}

func newAsynqLogger(l *zap.Logger) *asynqLogger {
	return &asynqLogger{log: l.Sugar()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(args...) }
