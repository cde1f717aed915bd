package httpserver_test

import "time"

var fixedTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
