package payment

import (
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// stripeLogger routes the SDK's leveled logging into the application logger.
type stripeLogger struct {
	log logger.Interface
}

func newStripeLogger(log logger.Interface) stripe.LeveledLoggerInterface {
	return &stripeLogger{log: log.Named("stripe")}
}

func (l *stripeLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l *stripeLogger) Infof(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l *stripeLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l *stripeLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}
