package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"
	// reports are tagged so cleanup never touches unrelated files of the account
	appPropertyKey   = "liberdade"
	appPropertyValue = "report"
)

type GoogleDriveApi struct {
	srv     *drive.Service
	fileTTL time.Duration
}

func New(ctx context.Context, cfg *config.Config) *GoogleDriveApi {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		slog.Error("failed on drive.NewService")
		panic(err)
	}
	return &GoogleDriveApi{srv: srv, fileTTL: cfg.GoogleDrive.FileTTL}
}

// UploadFile stores a report readable by anyone with the link and returns that link.
func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	fileMeta := &drive.File{
		Name:          filename,
		MimeType:      mime.TypeByExtension(filepath.Ext(filename)),
		AppProperties: map[string]string{appPropertyKey: appPropertyValue},
	}

	uploaded, err := a.srv.Files.
		Create(fileMeta).
		Media(reader).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading report to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	_, err = a.srv.Permissions.
		Create(uploaded.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on sharing uploaded report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploaded.Id))

	return fmt.Sprintf(downloadLinkTemplate, uploaded.Id), nil
}

// DeleteOldFiles removes reports older than the configured TTL.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	query := fmt.Sprintf(
		"appProperties has { key='%s' and value='%s' } and createdTime < '%s' and trashed = false",
		appPropertyKey, appPropertyValue, time.Now().Add(-a.fileTTL).UTC().Format(time.RFC3339),
	)

	deleted := 0
	err := a.srv.Files.List().
		Q(query).
		Fields("nextPageToken, files(id)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				if err := a.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
					slog.Error("failed delete report", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", f.Id), slog.String("err", err.Error()))
					continue
				}
				deleted++
			}
			return nil
		})
	if err != nil {
		slog.Error("failed on listing old reports", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("DeleteOldFiles completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("deletedFiles", deleted))

	return nil
}
