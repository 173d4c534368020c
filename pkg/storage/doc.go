// Package storage stores uploaded files in S3-compatible object storage.
//
// Keys are generated as {tenant}/{prefix}/{uuidv7}{ext}, with the extension
// derived from the content type sniffed from the stored bytes.
//
// # Basic Usage
//
//	store, err := storage.New(storage.Config{
//		Bucket:    "uploads",
//		AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
//		SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
//		Endpoint:  "http://localhost:9000",
//		PathStyle: true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	info, err := store.Put(ctx, r,
//		storage.WithTenant(tenantID),
//		storage.WithPrefix("documents"),
//	)
//
// # Upload Processor
//
// Processor adapts a Storage to the upload engine. Each file is written with
// Put and deleted again if the batch it belongs to fails:
//
//	cfg := upload.Config[*storage.FileInfo]{
//		MaxFiles:     5,
//		MaxFileSize:  10 << 20,
//		AllowedTypes: []string{"application/pdf"},
//		Processor:    storage.Processor(store, storage.WithPrefix("documents")),
//	}
//
// # URL Generation
//
//	// Signed URL valid for one hour
//	url, err := store.URL(ctx, info.Key, storage.WithExpiry(time.Hour))
//
//	// Signed URL with download disposition
//	url, err := store.URL(ctx, info.Key, storage.WithDownload("report.pdf"))
//
//	// Unsigned CDN URL
//	url, err := store.URL(ctx, info.Key, storage.WithPublic())
//
// # Configuration
//
// Config fields carry env tags (STORAGE_BUCKET, STORAGE_ACCESS_KEY, STORAGE_SECRET_KEY,
// STORAGE_ENDPOINT, STORAGE_REGION, STORAGE_PUBLIC_URL, STORAGE_DEFAULT_ACL,
// STORAGE_PATH_STYLE, STORAGE_MAX_OBJECT_SIZE).
package storage
