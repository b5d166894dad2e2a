package common

// ServiceName identifies this process in traces, events and metrics.
const ServiceName = "filegate"

// DayLayout is the calendar-day key used for daily view counters.
const DayLayout = "2006-01-02"
