package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/db"
	"github.com/alexanderramin/awp4d/internal/importer"
	"github.com/alexanderramin/awp4d/internal/repository"
)

type modelImportService struct {
	tree repository.ModelTree
	uow  db.UnitOfWork
	cfg  serviceConfig
}

// NewModelImportService loads model-tree exports. Each import runs in one
// transaction; tree is used for counting what is already loaded.
func NewModelImportService(tree repository.ModelTree, uow db.UnitOfWork, opts ...Option) ModelImportService {
	return &modelImportService{
		tree: tree,
		uow:  uow,
		cfg:  newServiceConfig(opts),
	}
}

func (s *modelImportService) ImportModel(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadImportSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportModelFromSchema(ctx, schema)
}

func (s *modelImportService) ImportModelFromSchema(ctx context.Context, schema *importer.ImportSchema) (result *ImportResult, err error) {
	run := startUseCase(useCaseImportModel, s.cfg.observer, s.cfg.clock)
	defer func() {
		if result != nil {
			run.set("models", result.Models)
			run.set("nodes", result.Nodes)
			run.set("properties", result.Properties)
		}
		run.finish(ctx, err)
	}()

	if errs := importer.ValidateImportSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	counts, err := s.tree.CountNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading loaded models: %w", err)
	}
	doc := importer.Convert(schema, importer.Base{ModelPosition: counts.Models, Ordinal: counts.Nodes})

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		w := repository.NewSQLiteModelTree(tx)
		for i := range doc.Models {
			cm := &doc.Models[i]
			if err := w.CreateModel(ctx, &cm.Model); err != nil {
				return fmt.Errorf("creating model %q: %w", cm.Model.FileName, err)
			}
			keys := make([]int64, len(cm.Nodes))
			for j := range cm.Nodes {
				cn := &cm.Nodes[j]
				if cn.Parent >= 0 {
					parent := keys[cn.Parent]
					cn.Node.ParentKey = &parent
				}
				key, err := w.InsertNode(ctx, &cn.Node)
				if err != nil {
					return fmt.Errorf("creating node %q: %w", cn.Node.DisplayName, err)
				}
				keys[j] = key
				if len(cn.Properties) == 0 {
					continue
				}
				if err := w.InsertProperties(ctx, key, cn.Properties); err != nil {
					return fmt.Errorf("creating properties of %q: %w", cn.Node.DisplayName, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.logger.Info("model imported", "models", len(doc.Models), "nodes", doc.NodeCount())
	return &ImportResult{
		Models:     len(doc.Models),
		Nodes:      doc.NodeCount(),
		Properties: doc.PropertyCount(),
	}, nil
}

func (s *modelImportService) ResetModel(ctx context.Context) (int, error) {
	var removed int
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		n, err := repository.NewSQLiteModelTree(tx).DeleteModels(ctx)
		removed = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("resetting model: %w", err)
	}
	return removed, nil
}
