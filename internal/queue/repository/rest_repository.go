package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	"github.com/bematende/bematende-backend/internal/queue/models"
)

// Koleksi pada layanan penyimpanan. Pasien yang sudah lewat pra-konsultasi
// pindah ke koleksi layanan medis.
const (
	CollectionPreConsultation = "preConsultaQueue"
	CollectionMedical         = "medicalQueue"
)

func collectionFor(stage models.Stage) string {
	if stage == models.StagePreConsultation {
		return CollectionPreConsultation
	}
	return CollectionMedical
}

// RESTRepository menyimpan pasien di layanan REST berorientasi resource
// (GET/POST /koleksi, GET/PATCH/DELETE /koleksi/:id, filter lewat query string).
type RESTRepository struct {
	client *resty.Client
	// layanan tidak punya compare-and-set, jadi transfer diserialkan di proses ini
	mu sync.Mutex
}

func NewRESTRepository(baseURL string, timeout time.Duration) *RESTRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &RESTRepository{client: client}
}

func (r *RESTRepository) Create(ctx context.Context, p models.Patient) error {
	return r.post(ctx, collectionFor(p.Status), p)
}

func (r *RESTRepository) GetByID(ctx context.Context, id string) (models.Patient, error) {
	for _, col := range []string{CollectionPreConsultation, CollectionMedical} {
		p, found, err := r.get(ctx, col, id)
		if err != nil {
			return models.Patient{}, err
		}
		if found {
			return p, nil
		}
	}
	return models.Patient{}, apperr.NotFound("patient %s not found", id)
}

func (r *RESTRepository) ListByStage(ctx context.Context, stage models.Stage, facilityID string) ([]models.Patient, error) {
	var all []models.Patient
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("status", string(stage)).
		SetResult(&all).
		Get("/" + collectionFor(stage))
	if err != nil {
		return nil, apperr.StorageUnavailable("list patients", err)
	}
	if resp.IsError() {
		return nil, apperr.StorageUnavailable("list patients", statusError(resp))
	}

	patients := make([]models.Patient, 0, len(all))
	for _, p := range all {
		if p.Status == stage && matchesFacility(p, facilityID) {
			patients = append(patients, p)
		}
	}
	sort.SliceStable(patients, func(i, j int) bool {
		if patients[i].CreatedAt != patients[j].CreatedAt {
			return patients[i].CreatedAt < patients[j].CreatedAt
		}
		return patients[i].ID < patients[j].ID
	})
	return patients, nil
}

func (r *RESTRepository) Transfer(ctx context.Context, id string, from, to models.Stage) (models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Patient{}, err
	}
	if p.Status != from {
		return models.Patient{}, apperr.TransitionRejected("patient %s is %s, expected %s", id, p.Status, from)
	}

	src, dst := collectionFor(from), collectionFor(to)
	p.Status = to
	if src == dst {
		resp, err := r.client.R().
			SetContext(ctx).
			SetBody(map[string]string{"status": string(to)}).
			Patch("/" + src + "/" + id)
		if err != nil {
			return models.Patient{}, apperr.StorageUnavailable("update status", err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return models.Patient{}, apperr.NotFound("patient %s not found", id)
		}
		if resp.IsError() {
			return models.Patient{}, apperr.StorageUnavailable("update status", statusError(resp))
		}
		return p, nil
	}

	// pindah koleksi: tulis di tujuan dulu, baru hapus di asal
	if err := r.post(ctx, dst, p); err != nil {
		return models.Patient{}, err
	}
	if err := r.delete(ctx, src, id); err != nil {
		if rbErr := r.delete(ctx, dst, id); rbErr != nil {
			return models.Patient{}, apperr.StorageUnavailable("transfer rollback", fmt.Errorf("%v; rollback: %w", err, rbErr))
		}
		return models.Patient{}, err
	}
	return p, nil
}

func (r *RESTRepository) Delete(ctx context.Context, id string) error {
	for _, col := range []string{CollectionPreConsultation, CollectionMedical} {
		if err := r.delete(ctx, col, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *RESTRepository) get(ctx context.Context, col, id string) (models.Patient, bool, error) {
	var p models.Patient
	resp, err := r.client.R().SetContext(ctx).SetResult(&p).Get("/" + col + "/" + id)
	if err != nil {
		return p, false, apperr.StorageUnavailable("get patient", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return p, false, nil
	}
	if resp.IsError() {
		return p, false, apperr.StorageUnavailable("get patient", statusError(resp))
	}
	return p, true, nil
}

func (r *RESTRepository) post(ctx context.Context, col string, p models.Patient) error {
	resp, err := r.client.R().SetContext(ctx).SetBody(p).Post("/" + col)
	if err != nil {
		return apperr.StorageUnavailable("insert patient", err)
	}
	if resp.IsError() {
		return apperr.StorageUnavailable("insert patient", statusError(resp))
	}
	return nil
}

// delete mengabaikan 404 supaya penghapusan idempoten.
func (r *RESTRepository) delete(ctx context.Context, col, id string) error {
	resp, err := r.client.R().SetContext(ctx).Delete("/" + col + "/" + id)
	if err != nil {
		return apperr.StorageUnavailable("delete patient", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return apperr.StorageUnavailable("delete patient", statusError(resp))
	}
	return nil
}

func statusError(resp *resty.Response) error {
	return fmt.Errorf("%s %s: status %d", resp.Request.Method, resp.Request.URL, resp.StatusCode())
}
