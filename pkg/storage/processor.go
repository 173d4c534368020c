package storage

import (
	"context"
	"io"
	"net/url"

	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

// Metadata keys written by Processor.
const (
	MetaOriginalName = "original-name"
	MetaFieldName    = "field-name"
	MetaDeclaredType = "declared-type"
)

// Processor returns an upload processor that stores every accepted file in s
// and registers deleting it as the file's compensation.
//
//	res, err := upload.Process(ctx, upload.NewHTTPRequest(w, r), upload.Config[*storage.FileInfo]{
//		MaxFileSize:  10 << 20,
//		AllowedTypes: []string{"image/*"},
//		Processor:    storage.Processor(store, storage.WithTenant(tenantID), storage.WithPrefix("avatars")),
//	})
func Processor(s Storage, opts ...Option) upload.ProcessorFunc[*FileInfo] {
	return func(ctx context.Context, r io.Reader, meta upload.FileMetadata, pc *upload.ProcessorContext) (*FileInfo, error) {
		fileOpts := append([]Option{WithMetadata(map[string]string{
			MetaOriginalName: url.PathEscape(meta.Filename),
			MetaFieldName:    meta.FieldName,
			MetaDeclaredType: meta.MimeType,
		})}, opts...)

		info, err := s.Put(ctx, r, fileOpts...)
		if err != nil {
			return nil, err
		}

		// Registered before returning so a truncated or aborted file is removed too.
		pc.OnCleanup(func(ctx context.Context, _ upload.Reason, _ map[string]any) error {
			return s.Delete(ctx, info.Key)
		})
		return info, nil
	}
}
