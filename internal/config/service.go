// Package config implements the revisioned settings service: validated,
// transactional changesets over app_profile/engine_profile/fs_policy, the
// engine-profile normalizer's typed rule table, setup-token and API-key
// lifecycle backed by Argon2, and a LISTEN-first settings watcher with a
// polling fallback. Persistence is delegated entirely to a
// ports.ConfigStore; this package holds no storage-specific code.
package config

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

type Service struct {
	store ports.ConfigStore
	log   *slog.Logger
	now   func() time.Time

	setupTokenTTL time.Duration
}

func New(store ports.ConfigStore, log *slog.Logger, setupTokenTTL time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	if setupTokenTTL <= 0 {
		setupTokenTTL = 15 * time.Minute
	}
	return &Service{store: store, log: log, now: time.Now, setupTokenTTL: setupTokenTTL}
}

// Snapshot is an atomic read of all three documents and the revision they
// were read at.
func (s *Service) Snapshot(ctx context.Context) (domain.ConfigSnapshot, error) {
	appProfile, err := s.store.FetchAppProfile(ctx)
	if err != nil {
		return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindServiceUnavailable, "fetch app_profile", err)
	}
	engineProfile, err := s.store.FetchEngineProfile(ctx)
	if err != nil {
		return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindServiceUnavailable, "fetch engine_profile", err)
	}
	fsPolicy, err := s.store.FetchFsPolicy(ctx)
	if err != nil {
		return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindServiceUnavailable, "fetch fs_policy", err)
	}
	revision, err := s.store.FetchRevision(ctx)
	if err != nil {
		return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindServiceUnavailable, "fetch revision", err)
	}
	return domain.ConfigSnapshot{
		Revision:      revision,
		AppProfile:    appProfile,
		EngineProfile: engineProfile,
		FsPolicy:      fsPolicy,
	}, nil
}

// ApplyChangeset validates and applies every populated section atomically:
// if any field actually changes, one history entry per changed section is
// appended and the revision bumps exactly once; an all-no-op changeset
// leaves the revision untouched. Immutable-field violations and validation
// failures both abort before anything is written.
func (s *Service) ApplyChangeset(ctx context.Context, actor, reason string, changeset Changeset) (domain.ConfigSnapshot, error) {
	if changeset.isEmpty() {
		return s.Snapshot(ctx)
	}

	current, err := s.Snapshot(ctx)
	if err != nil {
		return domain.ConfigSnapshot{}, err
	}

	if err := checkImmutable(current.AppProfile.ImmutableKeys, changeset); err != nil {
		return domain.ConfigSnapshot{}, err
	}

	nextAppProfile := current.AppProfile
	nextEngineProfile := current.EngineProfile
	nextFsPolicy := current.FsPolicy
	var warnings []string
	changed := false

	if len(changeset.AppProfile) > 0 {
		patched, err := applyAppProfilePatch(current.AppProfile, changeset.AppProfile)
		if err != nil {
			return domain.ConfigSnapshot{}, err
		}
		if !reflect.DeepEqual(patched, current.AppProfile) {
			changed = true
			if err := s.store.StoreAppProfile(ctx, patched); err != nil {
				return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindInternal, "store app_profile", err)
			}
			if err := s.appendHistory(ctx, current.Revision, "app_profile", current.AppProfile, patched, actor, reason); err != nil {
				return domain.ConfigSnapshot{}, err
			}
		}
		nextAppProfile = patched
	}

	if len(changeset.EngineProfile) > 0 {
		patched, patchWarnings, err := NormalizeEngineProfile(current.EngineProfile, changeset.EngineProfile)
		if err != nil {
			return domain.ConfigSnapshot{}, err
		}
		warnings = append(warnings, patchWarnings...)
		if !reflect.DeepEqual(patched, current.EngineProfile) {
			changed = true
			if err := s.store.StoreEngineProfile(ctx, patched); err != nil {
				return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindInternal, "store engine_profile", err)
			}
			if err := s.appendHistory(ctx, current.Revision, "engine_profile", current.EngineProfile, patched, actor, reason); err != nil {
				return domain.ConfigSnapshot{}, err
			}
		}
		nextEngineProfile = patched
	}

	if len(changeset.FsPolicy) > 0 {
		patched, err := applyFsPolicyPatch(current.FsPolicy, changeset.FsPolicy)
		if err != nil {
			return domain.ConfigSnapshot{}, err
		}
		if !reflect.DeepEqual(patched, current.FsPolicy) {
			changed = true
			if err := s.store.StoreFsPolicy(ctx, patched); err != nil {
				return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindInternal, "store fs_policy", err)
			}
			if err := s.appendHistory(ctx, current.Revision, "fs_policy", current.FsPolicy, patched, actor, reason); err != nil {
				return domain.ConfigSnapshot{}, err
			}
		}
		nextFsPolicy = patched
	}

	revision := current.Revision
	if changed {
		revision, err = s.store.BumpRevision(ctx)
		if err != nil {
			return domain.ConfigSnapshot{}, apperr.Wrap(apperr.KindInternal, "bump revision", err)
		}
	}

	if len(warnings) > 0 {
		s.log.Warn("engine profile patch applied with warnings", "warnings", warnings)
	}

	return domain.ConfigSnapshot{
		Revision:      revision,
		AppProfile:    nextAppProfile,
		EngineProfile: nextEngineProfile,
		FsPolicy:      nextFsPolicy,
	}, nil
}

func (s *Service) appendHistory(ctx context.Context, revision int64, section string, oldVal, newVal any, actor, reason string) error {
	oldJSON, _ := marshalOrEmpty(oldVal)
	newJSON, _ := marshalOrEmpty(newVal)
	entry := ports.HistoryEntry{
		Revision: revision,
		Section:  section,
		OldJSON:  oldJSON,
		NewJSON:  newJSON,
		Actor:    actor,
		Reason:   reason,
		AtUnix:   s.now().Unix(),
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, "append history", err)
	}
	return nil
}
