package core

import (
	"arquitectura/internal/blob"
	"arquitectura/pkg/domain"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxBlueprintSize bounds a single blueprint upload.
const MaxBlueprintSize = 32 << 20

const blueprintURLExpiry = 24 * time.Hour

var errBlobsDisabled = errors.New("blueprint storage is not configured")

// BlueprintKey is the blob key of one uploaded version of a project's
// blueprint. An empty version addresses the unversioned key.
func BlueprintKey(projectID, name, version string) string {
	key := "proyectos/" + projectID + "/planos/" + name
	if version != "" {
		key += "/" + version
	}
	return key
}

func blueprintKeyOf(projectID string, bp domain.Blueprint) string {
	return BlueprintKey(projectID, bp.Name, bp.Version)
}

func findBlueprint(bps []domain.Blueprint, name string) (domain.Blueprint, bool) {
	for _, bp := range bps {
		if bp.Name == name {
			return bp, true
		}
	}
	return domain.Blueprint{}, false
}

func blueprintPath(projectID, name string) string {
	return "/proyectos/" + projectID + "/planos/" + url.PathEscape(name)
}

func validBlueprintName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("nombre de plano vacío")
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("nombre de plano inválido: %q", name)
	}
	return nil
}

// AttachBlueprint stores content as the blueprint name of the project and
// records it in the project's planos, replacing an entry with the same name.
// Each upload gets its own versioned key; the previous version is removed
// only after the project points at the new one.
func (s *Service) AttachBlueprint(ctx context.Context, projectID, name, description, contentType string, content io.Reader) (domain.Project, error) {
	var out domain.Project
	err := s.observe(ctx, "proyectos.attach_blueprint", domain.ProjectKind, "attach", projectID, func(ctx context.Context) (string, error) {
		if err := validBlueprintName(name); err != nil {
			return "", domain.InvalidInput(domain.BlueprintKind, err)
		}
		project, err := s.projects.Get(ctx, projectID)
		if err != nil {
			return "", err
		}
		if s.opts.blobs == nil {
			return project.ID, domain.StoreUnavailable(domain.BlueprintKind, errBlobsDisabled)
		}
		data, err := io.ReadAll(io.LimitReader(content, MaxBlueprintSize+1))
		if err != nil {
			return "", domain.InvalidInput(domain.BlueprintKind, fmt.Errorf("read upload: %w", err))
		}
		if len(data) > MaxBlueprintSize {
			return "", domain.InvalidInput(domain.BlueprintKind, fmt.Errorf("plano excede %d bytes", MaxBlueprintSize))
		}

		id := project.ID
		version, err := uuid.NewV7()
		if err != nil {
			return id, domain.StoreUnavailable(domain.BlueprintKind, err)
		}
		key := BlueprintKey(id, name, version.String())
		opts := blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"proyecto": id, "nombre": name},
		}
		if _, err := s.opts.blobs.Put(ctx, key, bytes.NewReader(data), opts); err != nil {
			return id, domain.StoreUnavailable(domain.BlueprintKind, err)
		}

		entry := domain.Blueprint{
			Name:        name,
			Description: description,
			URL:         s.blueprintURL(ctx, key, id, name),
			Version:     version.String(),
		}
		var previous []string
		replaced := false
		for i := range project.Blueprints {
			if project.Blueprints[i].Name == name {
				previous = append(previous, blueprintKeyOf(id, project.Blueprints[i]))
				project.Blueprints[i] = entry
				replaced = true
			}
		}
		if !replaced {
			project.Blueprints = append(project.Blueprints, entry)
		}
		out, err = s.projects.Update(ctx, id, project)
		if err != nil {
			s.removeBlob(ctx, key)
			return id, err
		}
		for _, old := range previous {
			s.removeBlob(ctx, old)
		}
		return id, nil
	})
	return out, err
}

func (s *Service) removeBlob(ctx context.Context, key string) {
	if _, err := s.opts.blobs.Delete(ctx, key); err != nil {
		s.opts.logger.Warn("remove blueprint blob failed", "key", key, "error", err)
	}
}

// OpenBlueprint returns the stored blueprint of a project. The caller closes the reader.
func (s *Service) OpenBlueprint(ctx context.Context, projectID, name string) (blob.Info, io.ReadCloser, error) {
	var (
		info blob.Info
		rc   io.ReadCloser
	)
	err := s.observe(ctx, "proyectos.open_blueprint", domain.ProjectKind, "open", projectID, func(ctx context.Context) (string, error) {
		if err := validBlueprintName(name); err != nil {
			return "", domain.InvalidInput(domain.BlueprintKind, err)
		}
		project, err := s.projects.Get(ctx, projectID)
		if err != nil {
			return "", err
		}
		if s.opts.blobs == nil {
			return project.ID, domain.StoreUnavailable(domain.BlueprintKind, errBlobsDisabled)
		}
		bp, ok := findBlueprint(project.Blueprints, name)
		if !ok {
			return project.ID, domain.NotFound(domain.BlueprintKind, name)
		}
		info, rc, err = s.opts.blobs.Get(ctx, blueprintKeyOf(project.ID, bp))
		if errors.Is(err, blob.ErrNotFound) {
			return project.ID, domain.NotFound(domain.BlueprintKind, name)
		}
		if err != nil {
			return project.ID, domain.StoreUnavailable(domain.BlueprintKind, err)
		}
		return project.ID, nil
	})
	return info, rc, err
}

// blueprintURL presigns a download URL for key on S3 and falls back to the API path.
func (s *Service) blueprintURL(ctx context.Context, key, projectID, name string) string {
	if s.opts.blobs.Driver() == blob.DriverS3 {
		u, err := s.opts.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: blueprintURLExpiry})
		if err == nil {
			return u
		}
		s.opts.logger.Warn("presign blueprint failed", "project", projectID, "name", name, "error", err)
	}
	return blueprintPath(projectID, name)
}
