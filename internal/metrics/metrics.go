// Пакет metrics — доменные Prometheus-метрики конвейера отчётов.
// HTTP-метрики живут в api/middleware; сюда вынесены счётчики,
// инкрементируемые сервисным слоем.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsTotal — счётчик поданных отчётов по исходу:
	// success, rejected, upload_failed, persistence_failed.
	// rejected — отказ по вине клиента (валидация, недопустимый тип файла),
	// upload_failed и persistence_failed — отказы инфраструктуры.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_reports_total",
			Help: "Количество поданных отчётов о нарушениях по исходу",
		},
		[]string{"result"},
	)

	// VerificationsTotal — счётчик проверок целостности по исходу:
	// authentic, tampered, not_found, fetch_failed.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_verifications_total",
			Help: "Количество проверок целостности доказательств по исходу",
		},
		[]string{"result"},
	)
)
