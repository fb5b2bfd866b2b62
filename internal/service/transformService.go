package service

import (
	"context"
	"errors"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ds124wfegd/image-transformer/internal/entity"
)

const eventPublishTimeout = 5 * time.Second

func (s *transformService) Transform(ctx context.Context, req *entity.TransformRequest) (*entity.TransformResult, error) {
	start := time.Now()
	s.metrics.TransformStarted(len(req.ImageBytes))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	task := s.pool.SubmitErr(func() (*entity.TransformResult, error) {
		return s.processor.Process(ctx, req)
	})

	var (
		result *entity.TransformResult
		err    error
	)
	select {
	case <-task.Done():
		result, err = task.Wait()
	case <-ctx.Done():
		select {
		case <-task.Done():
			result, err = task.Wait()
		default:
			// The worker notices the expired context at its next stage boundary.
			err = ctx.Err()
		}
	}
	err = normalizeError(err)

	s.finish(req, result, err, time.Since(start))
	return result, err
}

func (s *transformService) Close() {
	s.pool.StopAndWait()
	if err := s.producer.Close(); err != nil {
		s.log.WithError(err).Warn("failed to close event producer")
	}
}

func (s *transformService) finish(req *entity.TransformRequest, result *entity.TransformResult, err error, duration time.Duration) {
	event := entity.TransformEvent{
		RequestID:  req.RequestID,
		Status:     "success",
		InputBytes: len(req.ImageBytes),
		Quality:    req.QualityOrDefault(),
		Resized:    req.Size != nil,
		Duration:   duration,
		Time:       time.Now().UTC(),
	}

	outputBytes := 0
	if err != nil {
		event.Status = "failure"
		event.ErrorKind = entity.KindName(err)
	} else {
		outputBytes = len(result.Data)
		event.SourceFormat = result.SourceFormat
		event.OutputBytes = outputBytes
		event.Width = result.Width
		event.Height = result.Height
	}

	s.metrics.TransformFinished(event.Status, entity.KindName(err), outputBytes, duration)

	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()
	if perr := s.producer.Publish(ctx, event); perr != nil {
		s.log.WithError(perr).WithField("request_id", req.RequestID).Warn("transform event not published")
	}
}

func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var te *entity.TransformError
	switch {
	case errors.As(err, &te):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return entity.WrapError(entity.ErrTimeout, "Image transformation timed out", err)
	case errors.Is(err, context.Canceled):
		return entity.WrapError(entity.ErrUnavailable, "Image transformation cancelled", err)
	case errors.Is(err, pond.ErrPoolStopped):
		return entity.WrapError(entity.ErrUnavailable, "Server is shutting down", err)
	default:
		return entity.WrapError(entity.ErrInternal, "Internal server error", err)
	}
}
