package outbound

import (
	"fmt"

	"partsync/internal/models"
	"partsync/internal/sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad decimal %q: %w", s, err)
	}
	return value, nil
}

// CreateRemoteCollection exports a collection that has never been pushed.
func (e *Engine) CreateRemoteCollection(id uuid.UUID) (string, error) {
	collection, err := e.loadCollection(id)
	if err != nil {
		return "", err
	}
	if collection.CollectionID != 0 {
		return "", fmt.Errorf("collection %s already has external id %d",
			collection.Title, collection.CollectionID)
	}

	created, err := e.Client.CreateSmartCollection(e.Transformer.ToCollectionPayload(collection))
	if err != nil {
		return sync.RecordErrorMsg("Shopify Collection", collection.String(), err), nil
	}

	collection.CollectionID = created.ID
	if created.Handle != "" {
		collection.Handle = created.Handle
	}
	if err := e.DB.Save(collection).Error; err != nil {
		return "", err
	}
	return sync.CreatedMsg("Shopify Collection", collection.String()), nil
}

// UpdateRemoteCollection pushes the local representation of an already
// exported collection.
func (e *Engine) UpdateRemoteCollection(id uuid.UUID) (string, error) {
	collection, err := e.loadCollection(id)
	if err != nil {
		return "", err
	}
	if collection.CollectionID == 0 {
		return "", fmt.Errorf("collection %s has no external id", collection.Title)
	}

	if _, err := e.Client.UpdateSmartCollection(e.Transformer.ToCollectionPayload(collection)); err != nil {
		return sync.RecordErrorMsg("Shopify Collection", collection.String(), err), nil
	}
	return sync.UpdatedMsg("Shopify Collection", collection.String(),
		[]sync.Delta{{Field: "pushed", Old: "", New: fmt.Sprintf("%d", collection.CollectionID)}}), nil
}

// PullAndReconcileCollection fetches the platform's canonical copy and
// applies it locally, changed fields only.
func (e *Engine) PullAndReconcileCollection(id uuid.UUID) (string, error) {
	collection, err := e.loadCollection(id)
	if err != nil {
		return "", err
	}
	if collection.CollectionID == 0 {
		return "", fmt.Errorf("collection %s has no external id", collection.Title)
	}

	remote, err := e.Client.GetSmartCollection(collection.CollectionID)
	if err != nil {
		return sync.RecordErrorMsg("Shopify Collection", collection.String(), err), nil
	}

	var deltas []sync.Delta
	if remote.Title != collection.Title {
		deltas = append(deltas, sync.Delta{Field: "title", Old: collection.Title, New: remote.Title})
		collection.Title = remote.Title
	}
	if remote.BodyHTML != collection.BodyHTML {
		deltas = append(deltas, sync.Delta{Field: "body_html", Old: collection.BodyHTML, New: remote.BodyHTML})
		collection.BodyHTML = remote.BodyHTML
	}
	if remote.Handle != "" && remote.Handle != collection.Handle {
		deltas = append(deltas, sync.Delta{Field: "handle", Old: collection.Handle, New: remote.Handle})
		collection.Handle = remote.Handle
	}

	if len(deltas) == 0 {
		return sync.UpToDateMsg("Shopify Collection", collection.String()), nil
	}
	if err := e.DB.Save(collection).Error; err != nil {
		return "", err
	}
	return sync.UpdatedMsg("Shopify Collection", collection.String(), deltas), nil
}

func (e *Engine) loadCollection(id uuid.UUID) (*models.ShopifyCollection, error) {
	var collection models.ShopifyCollection
	err := e.DB.Preload("Tags").First(&collection, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return &collection, nil
}
