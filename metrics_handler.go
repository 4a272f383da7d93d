package nstd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// MetricsHandler serves the metrics of g in the Prometheus text format.
// Register it like any route:
//
//	srv.GET("/metrics", nstd.MetricsHandler(registry))
func MetricsHandler(g prometheus.Gatherer) Handler {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return func(c *Ctx) error {
		families, err := g.Gather()
		if err != nil {
			return err
		}

		resp := NewResponse(StatusOK).AddContentTypeHeader(string(format))
		enc := expfmt.NewEncoder(resp, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return err
			}
		}
		return c.Send(resp)
	}
}
