package operator

import "github.com/sirupsen/logrus"

var log = logrus.WithField("component", "operator")
