package internal

import "expvar"

var (
	requestsTotal  = expvar.NewMap("linehooks_requests_total")
	authErrors     = expvar.NewMap("linehooks_auth_errors_total")
	parseErrors    = expvar.NewMap("linehooks_parse_errors_total")
	publishErrors  = expvar.NewMap("linehooks_publish_errors_total")
	contentErrors  = expvar.NewMap("linehooks_content_fetch_errors_total")
	eventsAccepted = expvar.NewMap("linehooks_events_accepted_total")
)

func IncRequest(channel string) {
	requestsTotal.Add(channel, 1)
}

func IncAuthError(channel string) {
	authErrors.Add(channel, 1)
}

func IncParseError(channel string) {
	parseErrors.Add(channel, 1)
}

func IncPublishError(driver string) {
	publishErrors.Add(driver, 1)
}

func IncContentFetchError(channel string) {
	contentErrors.Add(channel, 1)
}

func IncEventAccepted(eventType string) {
	eventsAccepted.Add(eventType, 1)
}
