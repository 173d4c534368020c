// Package upload implements a streaming multipart upload transaction.
//
// Files are validated while they arrive: the MIME type is checked from the part
// headers before any body byte is read, and the size ceiling is enforced by the
// transport truncating the stream. A timeout or client disconnect aborts the
// upload mid-stream by cancelling the part the processor is reading.
//
// Uploads are all-or-nothing. Processors register compensating actions per file
// through ProcessorContext.OnCleanup; if any file of a batch fails, the handlers
// of every file already accepted run exactly once before the failure is returned.
//
// # Basic Usage
//
//	result, err := upload.Process(ctx, upload.NewHTTPRequest(w, r), upload.Config[string]{
//		MaxFiles:     5,
//		MaxFileSize:  10 << 20, // 10MB
//		AllowedTypes: []string{"image/*", "application/pdf"},
//		Timeout:      30 * time.Second,
//		Processor: func(ctx context.Context, r io.Reader, meta upload.FileMetadata, pc *upload.ProcessorContext) (string, error) {
//			key, err := store.Put(ctx, r)
//			if err != nil {
//				return "", err
//			}
//			pc.OnCleanup(func(ctx context.Context, _ upload.Reason, _ map[string]any) error {
//				return store.Delete(ctx, key)
//			})
//			return key, nil
//		},
//	})
//	if err != nil {
//		// Misconfiguration, e.g. ErrMultipartDisabled.
//		return err
//	}
//	if !result.OK() {
//		w.WriteHeader(result.Err.Status)
//		return json.NewEncoder(w).Encode(result.Err.Envelope())
//	}
//
// # Error Codes
//
// Every failure carries a Reason that maps to a stable status and code:
//
//	size_exceeded          413  file_too_large
//	mime_type_rejected     415  file_type_not_allowed
//	connection_broken      499  file_upload_connection_broken
//	timeout                408  file_upload_timeout
//	batch_file_failed      400  file_batch_upload_failed
//	processor_error        500  file_processor_error
//	files_limit_exceeded   413  file_max_files_exceeded
//	no_files_provided      400  file_not_provided
//
// When more than one file is allowed, per-file failures (type, size, processor)
// are reported as batch_file_failed with the original reason in the details.
package upload
