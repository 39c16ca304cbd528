// Package batch converts many stored captures concurrently.
//
// Each conversion stays synchronous; the Runner only decides how many run
// at once. A resource.Controller bounds the number of workers, the summed
// memory estimate of running jobs and the IO byte rate. Every job gets a
// UUID that tags its log lines.
//
//	conv, _ := splatgo.New(splatgo.WithFormat(splatgo.FormatGLB))
//	runner := batch.NewRunner(conv, blobstore.NewLocalStore("in"), blobstore.NewLocalStore("out"),
//	    batch.WithController(resource.NewController(resource.Config{MaxWorkers: 4})),
//	)
//	summary, err := runner.RunPrefix(ctx, "")
package batch
