package main

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/tridenttech/trident-web/internal/blog"
	"github.com/tridenttech/trident-web/internal/cfg"
	"github.com/tridenttech/trident-web/internal/content"
	"github.com/tridenttech/trident-web/internal/cryptoutil"
	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/metrics"
	"github.com/tridenttech/trident-web/internal/webassets"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

// loadContent builds the snapshot for the configured source. Disk and S3
// failures fall back to the embedded seed so the site still comes up.
func loadContent(ctx context.Context, conf cfg.App, L log.Logger, m *metrics.ServerMetrics) (*content.Snapshot, error) {
	source := conf.ResolveContentSource()
	start := time.Now()

	var snap *content.Snapshot
	var err error
	switch source {
	case cfg.SourceS3:
		snap, err = loadBundle(ctx, conf, L)
	case cfg.SourceDisk:
		snap, err = content.LoadDir(conf.ContentDir)
	}
	if err == nil && snap != nil {
		err = content.ValidateSnapshot(snap, content.ValidationOptions{})
	}
	if err != nil {
		L.Error(ctx, err, "content load failed, falling back to seed", "source", source)
		snap = nil
	}
	if snap != nil {
		m.ObserveBundleLoad(time.Since(start))
		return snap, nil
	}

	seedFS, ok := webassets.SeedSiteFS()
	if !ok {
		return nil, xerrors.New("no content: configured source failed and no seed site is embedded")
	}
	snap, err = content.FromFS(seedFS, content.SourceSeed)
	if err != nil {
		return nil, xerrors.Wrap(err, "seed content")
	}
	if err := content.ValidateSnapshot(snap, content.ValidationOptions{}); err != nil {
		return nil, xerrors.Wrap(err, "seed content")
	}
	return snap, nil
}

func loadBundle(ctx context.Context, conf cfg.App, L log.Logger) (*content.Snapshot, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "load AWS config")
	}

	var verifier content.Verifier
	if conf.ContentSigningKeyARN != "" {
		verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(awsCfg), conf.ContentSigningKeyARN)
	}

	loader, err := content.NewLoader(ctx, content.LoaderOptions{
		Logger:    L,
		SSMParam:  conf.ContentSSMParam,
		S3Bucket:  conf.ContentS3Bucket,
		S3Prefix:  conf.ContentS3Prefix,
		Verifier:  verifier,
		AWSConfig: &awsCfg,
	})
	if err != nil {
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return loader.Load(loadCtx)
}

// loadBlog reads the posts out of the snapshot. A missing blog directory is
// an empty blog, not an error.
func loadBlog(ctx context.Context, snap *content.Snapshot, conf cfg.App, L log.Logger, m *metrics.ServerMetrics) *blog.Store {
	L = L.With("component", "blog")

	docs, err := blog.Discover(ctx, snap.FS, conf.BlogDir, L)
	if err != nil {
		L.Error(ctx, err, "blog discovery failed, serving without posts", "dir", conf.BlogDir)
		docs = map[string]string{}
	}

	mode := blog.TagsFoldCase
	if conf.BlogTagMode == "exact" {
		mode = blog.TagsExact
	}
	store := blog.Load(ctx, docs, blog.LoadOptions{
		Logger:  L,
		TagMode: mode,
		OnSkip:  m.BlogDocumentSkipped,
	})
	m.SetBlog(store.Len(), len(store.Tags()))
	return store
}
