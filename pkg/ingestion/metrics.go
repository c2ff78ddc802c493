// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the ingestion subsystem.
type metricsIngestion struct {
	once sync.Once

	// Walk
	foldersCreated     prometheus.Counter
	filesIngested      prometheus.Counter
	duplicatesSkipped  prometheus.Counter
	unsupportedSkipped prometheus.Counter
	ignoredSkipped     prometheus.Counter

	// Failures
	parseErrors prometheus.Counter
	storeErrors prometheus.Counter
	taskErrors  prometheus.Counter

	// Entities/Embeddings
	superEntities prometheus.Counter
	subEntities   prometheus.Counter
	embedComputed prometheus.Counter
	embedErrors   prometheus.Counter

	// Durations
	fileDuration  prometheus.Histogram
	embedDuration prometheus.Histogram
	totalDuration prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.foldersCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_folders_total", Help: "Nodos de carpeta creados"})
		m.filesIngested = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_files_total", Help: "Archivos ingestados"})
		m.duplicatesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_duplicates_skipped_total", Help: "Archivos omitidos por contenido duplicado"})
		m.unsupportedSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_unsupported_skipped_total", Help: "Archivos omitidos por extensión no soportada"})
		m.ignoredSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_ignored_skipped_total", Help: "Entradas omitidas por reglas gitignore"})

		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_parse_errors_total", Help: "Errores de parseo tree-sitter"})
		m.storeErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_store_errors_total", Help: "Errores de escritura al store"})
		m.taskErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_task_errors_total", Help: "Tareas del walk fallidas"})

		m.superEntities = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_super_entities_total", Help: "Super entidades creadas"})
		m.subEntities = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_sub_entities_total", Help: "Sub entidades creadas"})
		m.embedComputed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_embeddings_computed_total", Help: "Embeddings calculados"})
		m.embedErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_ing_embeddings_errors_total", Help: "Errores de proveedor de embeddings"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.fileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_ing_file_seconds", Help: "Duración de ingesta por archivo", Buckets: buckets})
		m.embedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_ing_embed_seconds", Help: "Duración de embeddings", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_ing_total_seconds", Help: "Duración total de la ejecución", Buckets: buckets})

		prometheus.MustRegister(
			m.foldersCreated, m.filesIngested, m.duplicatesSkipped, m.unsupportedSkipped, m.ignoredSkipped,
			m.parseErrors, m.storeErrors, m.taskErrors,
			m.superEntities, m.subEntities, m.embedComputed, m.embedErrors,
			m.fileDuration, m.embedDuration, m.totalDuration,
		)
	})
}

// record helpers - used by the walker and embed queue
func recordFolder() { ingMetrics.init(); ingMetrics.foldersCreated.Inc() }

func recordDuplicate() { ingMetrics.init(); ingMetrics.duplicatesSkipped.Inc() }

func recordUnsupported() { ingMetrics.init(); ingMetrics.unsupportedSkipped.Inc() }

func recordIgnored() { ingMetrics.init(); ingMetrics.ignoredSkipped.Inc() }

func recordParseError() { ingMetrics.init(); ingMetrics.parseErrors.Inc() }

func recordStoreError() { ingMetrics.init(); ingMetrics.storeErrors.Inc() }

func recordTaskError() { ingMetrics.init(); ingMetrics.taskErrors.Inc() }

func recordSuperEntity() { ingMetrics.init(); ingMetrics.superEntities.Inc() }

func recordEmbedError() { ingMetrics.init(); ingMetrics.embedErrors.Inc() }

func recordSubEntities(n int) {
	ingMetrics.init()
	ingMetrics.subEntities.Add(float64(n))
}

func recordFileIngested(d time.Duration) {
	ingMetrics.init()
	ingMetrics.filesIngested.Inc()
	ingMetrics.fileDuration.Observe(d.Seconds())
}

func recordEmbedding(d time.Duration) {
	ingMetrics.init()
	ingMetrics.embedComputed.Inc()
	ingMetrics.embedDuration.Observe(d.Seconds())
}

func recordRunDuration(d time.Duration) {
	ingMetrics.init()
	ingMetrics.totalDuration.Observe(d.Seconds())
}
