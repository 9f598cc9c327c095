// Package reconciler makes a single DNS record match the host's resolved
// public IP with the minimum number of provider writes.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seawhite/aws-r53-ip-updater/pkg/cloudprovider"
	"github.com/seawhite/aws-r53-ip-updater/pkg/ipprovider"
)

type Outcome string

const (
	// OutcomeNoOp means the record already held the resolved IP.
	OutcomeNoOp Outcome = "noop"
	// OutcomeApplied means the upsert was accepted and verification was
	// not requested.
	OutcomeApplied Outcome = "applied"
	// OutcomeAppliedUnverified means the upsert was accepted but the change
	// was still PENDING when the verification window closed.
	OutcomeAppliedUnverified Outcome = "applied-unverified"
	// OutcomeVerified means the change reached INSYNC.
	OutcomeVerified Outcome = "verified"
)

// ErrInvariant reports record state the single-value A record model cannot
// represent. The run fails closed rather than guessing which value wins.
var ErrInvariant = errors.New("record state violates single-value invariant")

type Config struct {
	ZoneID        string
	RecordName    string
	TTL           int64
	RecordType    string
	Verify        bool
	VerifyTimeout time.Duration
}

func (c Config) Validate() error {
	if c.ZoneID == "" {
		return errors.New("zone id cannot be empty")
	}
	if c.RecordName == "" {
		return errors.New("record name cannot be empty")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", c.TTL)
	}
	if c.RecordType != "A" {
		return fmt.Errorf("unsupported record type %q, only A records are supported", c.RecordType)
	}
	return nil
}

type Result struct {
	Outcome    Outcome
	ResolvedIP string
	PreviousIP string
	ChangeID   string
}

type Reconciler struct {
	Provider cloudprovider.Provider
	Log      *logrus.Logger

	// Write retry and verification tuning. Zero values pick the defaults.
	Attempts     int
	Backoff      time.Duration
	PollInterval time.Duration
}

const (
	defaultAttempts      = 3
	defaultBackoff       = 1 * time.Second
	defaultPollInterval  = 5 * time.Second
	defaultVerifyTimeout = 60 * time.Second
)

// Reconcile fetches the record's current value, compares it against ip and
// submits a single UPSERT when they differ. Transient write failures are
// retried with exponential backoff. When cfg.Verify is set the submitted
// change is polled until INSYNC or cfg.VerifyTimeout; running out of time
// is reported as OutcomeAppliedUnverified, not as an error.
func (r *Reconciler) Reconcile(ctx context.Context, cfg Config, ip string) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := r.logger()
	res := &Result{ResolvedIP: ip}

	snap, err := r.Provider.GetRecord(ctx, cfg.ZoneID, cfg.RecordName, cfg.RecordType)
	switch {
	case errors.Is(err, cloudprovider.ErrRecordNotFound):
		log.WithField("record", cfg.RecordName).Debug("record does not exist yet")
		snap = &cloudprovider.RecordSnapshot{}
	case err != nil:
		return nil, fmt.Errorf("fetching record %s: %w", cfg.RecordName, err)
	}

	if len(snap.Values) > 1 {
		return nil, fmt.Errorf("%w: record %s holds %d values", ErrInvariant, cfg.RecordName, len(snap.Values))
	}
	if len(snap.Values) == 1 {
		prev, err := ipprovider.ParseIPv4(snap.Values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: record %s holds %q", ErrInvariant, cfg.RecordName, snap.Values[0])
		}
		res.PreviousIP = prev
		if prev == ip {
			log.WithFields(logrus.Fields{"record": cfg.RecordName, "ip": ip}).Debug("record already current, skipping write")
			res.Outcome = OutcomeNoOp
			return res, nil
		}
	}

	change, err := r.apply(ctx, cfg, ip)
	if err != nil {
		return nil, err
	}
	res.ChangeID = change.ChangeID
	res.Outcome = OutcomeApplied
	log.WithFields(logrus.Fields{"record": cfg.RecordName, "change_id": change.ChangeID}).Debugf("change submitted with status %s", change.Status)

	if !cfg.Verify {
		return res, nil
	}
	if change.Status == cloudprovider.StatusInsync {
		res.Outcome = OutcomeVerified
		return res, nil
	}

	synced, err := r.awaitInsync(ctx, change.ChangeID, cfg.VerifyTimeout)
	switch {
	case err != nil:
		// The write itself succeeded; a failed status poll only costs
		// confirmation.
		log.WithField("change_id", change.ChangeID).Warnf("change status poll failed: %s", err)
		res.Outcome = OutcomeAppliedUnverified
	case synced:
		res.Outcome = OutcomeVerified
	default:
		log.WithField("change_id", change.ChangeID).Warn("change still PENDING when verification timed out")
		res.Outcome = OutcomeAppliedUnverified
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, cfg Config, ip string) (*cloudprovider.ChangeResult, error) {
	req := cloudprovider.ChangeRequest{
		Name:  cfg.RecordName,
		Type:  cfg.RecordType,
		TTL:   cfg.TTL,
		Value: ip,
	}
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		change, err := r.Provider.UpsertRecord(ctx, cfg.ZoneID, req)
		if err == nil {
			return change, nil
		}
		lastErr = err
		if !errors.Is(err, cloudprovider.ErrThrottled) && !errors.Is(err, cloudprovider.ErrUnavailable) {
			break
		}
		if attempt == attempts {
			break
		}
		r.logger().Warnf("upsert attempt %d/%d failed, retrying in %s: %s", attempt, attempts, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("upserting record %s: %w", cfg.RecordName, lastErr)
}

func (r *Reconciler) awaitInsync(ctx context.Context, changeID string, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	poll := r.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		status, err := r.Provider.ChangeStatus(ctx, changeID)
		if err != nil {
			return false, err
		}
		if status == cloudprovider.StatusInsync {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) logger() *logrus.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}
