package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/model"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
)

// A Controller is an Iversion Of Control pattern used to init the pipeline package.
type Controller struct {
	Logger    logger.Logger
	Database  database.Client
	Transform Transform
	// Workers bounds the number of blobs processed concurrently.
	Workers int
	// QueueSize bounds the number of blob ids waiting to be processed.
	QueueSize int
	// Throttle is the pause enforced between two successive rows of a blob.
	Throttle time.Duration
	// TransformTimeout bounds a single row's transform, retries included.
	TransformTimeout time.Duration
}

// A Pool processes uploaded blobs in the background. Blob ids are consumed
// from a single queue and each blob is claimed before processing so that a
// given blob is handled by exactly one worker at a time.
type Pool struct {
	ctrl  Controller
	log   logger.Logger
	queue chan string
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	claims map[string]bool
}

// NewPool returns a new Pool.
func NewPool(ctrl Controller) *Pool {
	if ctrl.Workers <= 0 {
		ctrl.Workers = 1
	}
	if ctrl.QueueSize <= 0 {
		ctrl.QueueSize = 64
	}
	if ctrl.TransformTimeout <= 0 {
		ctrl.TransformTimeout = 30 * time.Second
	}

	return &Pool{
		ctrl:   ctrl,
		log:    ctrl.Logger.WithPrefix("[pipeline]"),
		queue:  make(chan string, ctrl.QueueSize),
		done:   make(chan struct{}),
		claims: map[string]bool{},
	}
}

// Start launches the workers asynchronously.
func (p *Pool) Start() {
	for i := 0; i < p.ctrl.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	p.log.Infof("%d worker(s) running", p.ctrl.Workers)
}

// Stop terminates the workers. In-flight blobs are abandoned mid-row and
// picked up again by a later sweep, per-row upserts make that harmless.
func (p *Pool) Stop() {
	close(p.done)
	p.wg.Wait()
}

// Enqueue schedules the blob for processing. It returns false when the blob
// is already queued or claimed by a worker, or when the queue is full. In
// both cases the periodic sweep retries later.
func (p *Pool) Enqueue(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.claims[id] {
		return false
	}

	select {
	case p.queue <- id:
		p.claims[id] = true
		return true
	default:
		return false
	}
}

func (p *Pool) work() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case id := <-p.queue:
			if err := p.process(id); err != nil {
				p.log.Errorf("blob %s: %v", id, err)

				if _, err := p.ctrl.Database.MarkBlobFailed(id, err); err != nil {
					p.log.Error(errors.Wrap(err, "could not mark blob as failed"))
				}
			}
			p.release(id)
		}
	}
}

func (p *Pool) release(id string) {
	p.mu.Lock()
	delete(p.claims, id)
	p.mu.Unlock()
}

// process materializes every data row of the blob into a product record and
// then flips the blob's processed flag.
func (p *Pool) process(id string) error {
	blob, err := p.ctrl.Database.FindBlob(id)
	if err != nil {
		return errors.Wrap(err, "could not load blob")
	}
	if blob.IsProcessed {
		return nil
	}

	if _, err := p.ctrl.Database.MarkBlobProcessing(id); err != nil {
		return errors.Wrap(err, "could not mark blob as processing")
	}

	rows, err := ParseRows(blob.Content)
	if err != nil {
		return errors.Wrap(err, "could not parse blob content")
	}
	if len(rows) == 0 {
		// Nothing but an empty file, there is no row to materialize.
		_, err = p.ctrl.Database.MarkBlobProcessed(id)
		return errors.Wrap(err, "could not mark blob as processed")
	}

	// The first row is the header.
	for i, row := range rows[1:] {
		if i > 0 {
			if !p.throttle() {
				return errors.New("interrupted by shutdown")
			}
		}

		if err := p.materialize(blob, row); err != nil {
			return errors.Wrapf(err, "row %d", i+1)
		}
	}

	_, err = p.ctrl.Database.MarkBlobProcessed(id)
	if err != nil {
		return errors.Wrap(err, "could not mark blob as processed")
	}

	p.log.Infof("blob %s processed (%d rows)", id, len(rows)-1)
	return nil
}

// materialize upserts the product derived from one data row.
// Re-processing the same row overwrites the same record in place.
func (p *Pool) materialize(blob *model.Blob, row []string) error {
	if len(row) < 2 {
		return errors.Errorf("malformed row: %d column(s), expected at least 2", len(row))
	}

	inputs := row[2:]
	outputs, err := p.transform(inputs)
	if err != nil {
		return err
	}

	product := &model.Product{
		BlobID:          blob.ID,
		SerialNumber:    row[0],
		Name:            row[1],
		InputImageURLs:  inputs,
		OutputImageURLs: outputs,
		Metadata:        map[string]interface{}{},
	}
	product.ID = model.DeriveID(product)

	err = p.ctrl.Database.Save(product)
	return errors.Wrap(err, "could not save product")
}

// transform invokes the external transform under a timeout and a retry budget.
func (p *Pool) transform(inputs []string) (outputs []string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.ctrl.TransformTimeout)
	defer cancel()

	err = retry.Do(func() error {
		outputs, err = p.ctrl.Transform.Transform(ctx, inputs)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "transform")
	}

	if len(outputs) != len(inputs) {
		return nil, errors.Errorf("transform returned %d url(s) for %d input(s)", len(outputs), len(inputs))
	}
	return outputs, nil
}

// throttle pauses between two rows. It returns false when the pool is stopped.
func (p *Pool) throttle() bool {
	if p.ctrl.Throttle <= 0 {
		return true
	}

	select {
	case <-p.done:
		return false
	case <-time.After(p.ctrl.Throttle):
		return true
	}
}

// ParseRows parses the blob content as CSV, header included.
// Rows are free to carry a variable number of image URL columns.
func ParseRows(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	return rows, errors.Wrap(err, "csv")
}
