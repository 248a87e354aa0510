package metrics

import "github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"

var log = logger.Global().Module("metrics")
