// Package plants reads solar plant data from the backend: the plant list,
// weather, KPIs, alerts and single-axis trackers.
//
// Every read goes through a service.Base, so it is cached, deduplicated and
// subject to the endpoint's failure backoff. Reads return a service.Result;
// with a Fallback configured, a failed read yields synthetic data flagged as
// such instead of an empty result:
//
//	base := service.New("plants", client)
//	svc := plants.New(base, plants.WithFallback(plants.NewSynthetic(3)))
//
//	res := svc.GetWeather(ctx, "7", time.Now())
//	if res.Fallback {
//	    log.Warn().Err(res.Err).Msg("showing synthetic weather")
//	}
package plants
