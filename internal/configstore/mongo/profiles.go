package mongo

import (
	"context"
	"errors"
	"net"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/internal/domain"
)

type revisionDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

type appProfileDoc struct {
	ID            string   `bson:"_id"`
	InstanceName  string   `bson:"instanceName"`
	Mode          string   `bson:"mode"`
	Version       string   `bson:"version"`
	HTTPPort      int      `bson:"httpPort"`
	BindAddr      string   `bson:"bindAddr,omitempty"`
	Telemetry     bool     `bson:"telemetry"`
	Features      []string `bson:"features,omitempty"`
	ImmutableKeys []string `bson:"immutableKeys,omitempty"`
}

func fromAppProfileDoc(doc appProfileDoc) domain.AppProfile {
	profile := domain.AppProfile{
		ID:            doc.ID,
		InstanceName:  doc.InstanceName,
		Mode:          domain.InstanceMode(doc.Mode),
		Version:       doc.Version,
		HTTPPort:      doc.HTTPPort,
		Telemetry:     doc.Telemetry,
		Features:      doc.Features,
		ImmutableKeys: doc.ImmutableKeys,
	}
	if doc.BindAddr != "" {
		profile.BindAddr = net.ParseIP(doc.BindAddr)
	}
	return profile
}

func toAppProfileSet(profile domain.AppProfile) bson.M {
	bindAddr := ""
	if profile.BindAddr != nil {
		bindAddr = profile.BindAddr.String()
	}
	return bson.M{
		"instanceName":  profile.InstanceName,
		"mode":          string(profile.Mode),
		"version":       profile.Version,
		"httpPort":      profile.HTTPPort,
		"bindAddr":      bindAddr,
		"telemetry":     profile.Telemetry,
		"features":      profile.Features,
		"immutableKeys": profile.ImmutableKeys,
	}
}

func (s *Store) FetchAppProfile(ctx context.Context) (domain.AppProfile, error) {
	var doc appProfileDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": appProfileDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.AppProfile{}, domain.ErrNotFound
		}
		return domain.AppProfile{}, err
	}
	return fromAppProfileDoc(doc), nil
}

func (s *Store) StoreAppProfile(ctx context.Context, profile domain.AppProfile) error {
	_, err := s.settings.UpdateOne(ctx,
		bson.M{"_id": appProfileDocID},
		bson.M{"$set": toAppProfileSet(profile)},
		options.Update().SetUpsert(true),
	)
	return err
}

type ipFilterDoc struct {
	CIDRs         []string `bson:"cidrs,omitempty"`
	BlocklistURL  *string  `bson:"blocklistUrl,omitempty"`
	ETag          *string  `bson:"etag,omitempty"`
	LastUpdatedAt *int64   `bson:"lastUpdatedAt,omitempty"`
	LastError     *string  `bson:"lastError,omitempty"`
}

type trackerConfigDoc struct {
	Default []string `bson:"default,omitempty"`
	Extra   []string `bson:"extra,omitempty"`
	Replace bool     `bson:"replace,omitempty"`
}

type engineProfileDoc struct {
	ID                string           `bson:"_id"`
	ListenPort        *int             `bson:"listenPort,omitempty"`
	Encryption        string           `bson:"encryption"`
	MaxActive         *int             `bson:"maxActive,omitempty"`
	MaxDownloadBps    *uint64          `bson:"maxDownloadBps,omitempty"`
	MaxUploadBps      *uint64          `bson:"maxUploadBps,omitempty"`
	IPv6Mode          string           `bson:"ipv6Mode"`
	DHTBootstrapNodes []string         `bson:"dhtBootstrapNodes,omitempty"`
	DHTRouterNodes    []string         `bson:"dhtRouterNodes,omitempty"`
	ListenInterfaces  []string         `bson:"listenInterfaces,omitempty"`
	IPFilter          ipFilterDoc      `bson:"ipFilter"`
	Tracker           trackerConfigDoc `bson:"tracker"`
}

func fromEngineProfileDoc(doc engineProfileDoc) domain.EngineProfile {
	return domain.EngineProfile{
		ListenPort:        doc.ListenPort,
		Encryption:        domain.EncryptionMode(doc.Encryption),
		MaxActive:         doc.MaxActive,
		MaxDownloadBps:    doc.MaxDownloadBps,
		MaxUploadBps:      doc.MaxUploadBps,
		IPv6Mode:          domain.IPv6Mode(doc.IPv6Mode),
		DHTBootstrapNodes: doc.DHTBootstrapNodes,
		DHTRouterNodes:    doc.DHTRouterNodes,
		ListenInterfaces:  doc.ListenInterfaces,
		IPFilter: domain.IPFilter{
			CIDRs:         doc.IPFilter.CIDRs,
			BlocklistURL:  doc.IPFilter.BlocklistURL,
			ETag:          doc.IPFilter.ETag,
			LastUpdatedAt: doc.IPFilter.LastUpdatedAt,
			LastError:     doc.IPFilter.LastError,
		},
		Tracker: domain.TrackerConfig{
			Default: doc.Tracker.Default,
			Extra:   doc.Tracker.Extra,
			Replace: doc.Tracker.Replace,
		},
	}
}

func toEngineProfileSet(profile domain.EngineProfile) bson.M {
	return bson.M{
		"listenPort":        profile.ListenPort,
		"encryption":        string(profile.Encryption),
		"maxActive":         profile.MaxActive,
		"maxDownloadBps":    profile.MaxDownloadBps,
		"maxUploadBps":      profile.MaxUploadBps,
		"ipv6Mode":          string(profile.IPv6Mode),
		"dhtBootstrapNodes": profile.DHTBootstrapNodes,
		"dhtRouterNodes":    profile.DHTRouterNodes,
		"listenInterfaces":  profile.ListenInterfaces,
		"ipFilter": ipFilterDoc{
			CIDRs:         profile.IPFilter.CIDRs,
			BlocklistURL:  profile.IPFilter.BlocklistURL,
			ETag:          profile.IPFilter.ETag,
			LastUpdatedAt: profile.IPFilter.LastUpdatedAt,
			LastError:     profile.IPFilter.LastError,
		},
		"tracker": trackerConfigDoc{
			Default: profile.Tracker.Default,
			Extra:   profile.Tracker.Extra,
			Replace: profile.Tracker.Replace,
		},
	}
}

func (s *Store) FetchEngineProfile(ctx context.Context) (domain.EngineProfile, error) {
	var doc engineProfileDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": engineProfileDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.EngineProfile{}, domain.ErrNotFound
		}
		return domain.EngineProfile{}, err
	}
	return fromEngineProfileDoc(doc), nil
}

func (s *Store) StoreEngineProfile(ctx context.Context, profile domain.EngineProfile) error {
	_, err := s.settings.UpdateOne(ctx,
		bson.M{"_id": engineProfileDocID},
		bson.M{"$set": toEngineProfileSet(profile)},
		options.Update().SetUpsert(true),
	)
	return err
}

type fsPolicyDoc struct {
	ID          string   `bson:"_id"`
	LibraryRoot string   `bson:"libraryRoot"`
	Extract     bool     `bson:"extract"`
	Par2        bool     `bson:"par2"`
	Flatten     bool     `bson:"flatten"`
	MoveMode    string   `bson:"moveMode"`
	CleanupKeep []string `bson:"cleanupKeep,omitempty"`
	CleanupDrop []string `bson:"cleanupDrop,omitempty"`
	ChmodFile   *uint32  `bson:"chmodFile,omitempty"`
	ChmodDir    *uint32  `bson:"chmodDir,omitempty"`
	Owner       *string  `bson:"owner,omitempty"`
	Group       *string  `bson:"group,omitempty"`
	Umask       *uint32  `bson:"umask,omitempty"`
	AllowPaths  []string `bson:"allowPaths,omitempty"`
}

func fromFsPolicyDoc(doc fsPolicyDoc) domain.FsPolicy {
	return domain.FsPolicy{
		LibraryRoot: doc.LibraryRoot,
		Extract:     doc.Extract,
		Par2:        doc.Par2,
		Flatten:     doc.Flatten,
		MoveMode:    domain.MoveMode(doc.MoveMode),
		CleanupKeep: doc.CleanupKeep,
		CleanupDrop: doc.CleanupDrop,
		ChmodFile:   doc.ChmodFile,
		ChmodDir:    doc.ChmodDir,
		Owner:       doc.Owner,
		Group:       doc.Group,
		Umask:       doc.Umask,
		AllowPaths:  doc.AllowPaths,
	}
}

func toFsPolicySet(policy domain.FsPolicy) bson.M {
	return bson.M{
		"libraryRoot": policy.LibraryRoot,
		"extract":     policy.Extract,
		"par2":        policy.Par2,
		"flatten":     policy.Flatten,
		"moveMode":    string(policy.MoveMode),
		"cleanupKeep": policy.CleanupKeep,
		"cleanupDrop": policy.CleanupDrop,
		"chmodFile":   policy.ChmodFile,
		"chmodDir":    policy.ChmodDir,
		"owner":       policy.Owner,
		"group":       policy.Group,
		"umask":       policy.Umask,
		"allowPaths":  policy.AllowPaths,
	}
}

func (s *Store) FetchFsPolicy(ctx context.Context) (domain.FsPolicy, error) {
	var doc fsPolicyDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": fsPolicyDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.FsPolicy{}, domain.ErrNotFound
		}
		return domain.FsPolicy{}, err
	}
	return fromFsPolicyDoc(doc), nil
}

func (s *Store) StoreFsPolicy(ctx context.Context, policy domain.FsPolicy) error {
	_, err := s.settings.UpdateOne(ctx,
		bson.M{"_id": fsPolicyDocID},
		bson.M{"$set": toFsPolicySet(policy)},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) FetchRevision(ctx context.Context) (int64, error) {
	var doc revisionDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": revisionDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return doc.Value, nil
}

// BumpRevision uses $inc so concurrent commits never race each other's
// read-modify-write the way a fetch-then-set pair would.
func (s *Store) BumpRevision(ctx context.Context) (int64, error) {
	var doc revisionDoc
	err := s.settings.FindOneAndUpdate(
		ctx,
		bson.M{"_id": revisionDocID},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
