package internal

import (
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/tbrandt/sked/internal/ctxhelper"
	"github.com/tbrandt/sked/internal/log"
)

// LogCalls is a middleware that logs the outcome and duration of every call to the wrapped endpoint
func LogCalls(op string, next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		defer func(begin time.Time) {
			logger := ctxhelper.Logger(ctx).WithFields(logrus.Fields{
				log.FldOperation: op,
				log.FldDuration:  time.Since(begin).String(),
			})
			if err != nil {
				logger.WithError(err).Warn("Operation failed")
			} else {
				logger.Debug("Operation succeeded")
			}
		}(time.Now())
		return next(ctx, request)
	}
}
