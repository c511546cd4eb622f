package services

import "log"

func logf(op, format string, args ...interface{}) {
	log.Printf(op+": "+format, args...)
}
