package scheduler

import (
	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/pipeline"
	"github.com/mdouchement/csvmill/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/robfig/cron/v3"
)

// A Controller is an Iversion Of Control pattern used to init the scheduler package.
type Controller struct {
	Logger        logger.Logger
	Database      database.Client
	Storage       storage.Backend
	Pool          *pipeline.Pool
	Specification string
}

// Start lauches the scheduler asynchronously.
//
// The sweep re-enqueues every blob left unprocessed, which heals blobs whose
// processing was interrupted (crash, shutdown, transform failure). Claimed
// blobs are dropped by the pool so a sweep never duplicates running work.
func Start(c Controller) {
	cron := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	log := c.Logger.WithPrefix("[scheduler]")

	_, err := cron.AddFunc(c.Specification, func() {
		log := c.Logger.WithPrefix("[sweep]")

		blobs, err := c.Database.UnprocessedBlobs()
		if err != nil {
			log.Error(err)
			return
		}

		for _, blob := range blobs {
			if c.Pool.Enqueue(blob.ID) {
				log.Infof("Requeued %s", blob.ID)
			}
		}

		err = c.Storage.Cleanup()
		if err != nil {
			log.Error(err)
			return
		}
	})
	if err != nil {
		panic(err)
	}
	log.Info("Sweep task registred")

	cron.Start()
	log.Info("Scheduler is running")
}
