// Package tariffd provides an in-process client for the tariffd advisory
// pipeline: carrier cost estimation, evidence retrieval and rate card
// access without running the HTTP server.
//
//	client, err := tariffd.New(ctx,
//	    tariffd.WithRedis("localhost:6379", ""),
//	    tariffd.WithModelPath("models/cost_model.json"),
//	    tariffd.WithRateCardFile("models/rate_card.json"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	advisory, err := client.Advise(ctx, tariffd.ShipmentRequest{
//	    ItemDescription:   "smartphone",
//	    DeclaredValue:     800,
//	    WeightKG:          0.5,
//	    OriginRegion:      "US",
//	    DestinationRegion: "BR",
//	    CandidateCarriers: []string{"DHL", "FedEx"},
//	})
//
// Without an embedding provider (WithEmbedder), advisories still work:
// evidence retrieval degrades gracefully and the advisory carries a
// numeric-only rationale.
package tariffd
