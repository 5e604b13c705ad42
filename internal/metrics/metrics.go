package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionsCreated counts sessions created by getOrCreate requests.
var SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rollcall_sessions_created_total",
	Help: "Number of attendance sessions created.",
})

// AttendanceRecorded counts accepted attendance submissions by status.
var AttendanceRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rollcall_attendance_recorded_total",
	Help: "Number of attendance entries recorded, by status.",
}, []string{"status"})

// AttendanceRejected counts rejected submissions by reason.
var AttendanceRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rollcall_attendance_rejected_total",
	Help: "Number of attendance submissions rejected, by reason.",
}, []string{"reason"})
