package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"Panikkar/entity"
	"Panikkar/internal/lib/sl"
)

var (
	ErrAlreadyApplied = entity.ErrAlreadyApplied
	ErrJobClosed      = entity.ErrJobClosed
	ErrJobNotFound    = entity.ErrJobNotFound
	ErrOwnJob         = entity.ErrOwnJob
)

const maxPageSize = 50

// Service stores workers, jobs and applications in PostgreSQL.
type Service struct {
	db  *gorm.DB
	log *slog.Logger
}

// Connect opens a gorm connection to PostgreSQL.
func Connect(dsn string) (*gorm.DB, error) {
	return open(postgres.Open(dsn))
}

// open applies the shared gorm settings. Driver errors are translated so
// unique violations surface as gorm.ErrDuplicatedKey.
func open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return db, nil
}

func New(db *gorm.DB, log *slog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With(sl.Module("marketplace")),
	}
}

// Migrate creates or updates the marketplace tables.
func (s *Service) Migrate() error {
	if err := s.db.AutoMigrate(&entity.Worker{}, &entity.Job{}, &entity.Application{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RegisterWorker creates the worker or updates the profile registered under the same phone.
func (s *Service) RegisterWorker(ctx context.Context, w *entity.Worker) (*entity.Worker, error) {
	w.Active = true
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker: %w", err)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "latitude", "longitude", "place", "photo_id", "active", "updated_at"}),
	}).Create(w).Error
	if err != nil {
		return nil, fmt.Errorf("register worker: %w", err)
	}

	s.log.Info("worker registered",
		slog.Uint64("worker_id", uint64(w.ID)),
		slog.String("category", w.Category),
	)
	return w, nil
}

// WorkerByPhone returns nil when no worker is registered under phone.
func (s *Service) WorkerByPhone(ctx context.Context, phone string) (*entity.Worker, error) {
	var w entity.Worker
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find worker: %w", err)
	}
	return &w, nil
}

func (s *Service) PostJob(ctx context.Context, j *entity.Job) (*entity.Job, error) {
	if err := j.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, fmt.Errorf("post job: %w", err)
	}

	s.log.Info("job posted",
		slog.Uint64("job_id", uint64(j.ID)),
		slog.String("category", j.Category),
	)
	return j, nil
}

// OpenJobs lists open jobs, newest first. An empty category lists all.
func (s *Service) OpenJobs(ctx context.Context, category string, offset, limit int) ([]entity.Job, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	q := s.db.WithContext(ctx).Where("status = ?", entity.JobStatusOpen)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var jobs []entity.Job
	err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}
	return jobs, nil
}

// JobByID returns nil when the job does not exist.
func (s *Service) JobByID(ctx context.Context, id uint) (*entity.Job, error) {
	var j entity.Job
	err := s.db.WithContext(ctx).First(&j, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return &j, nil
}

// Apply records a worker's application. The job row is locked so a job closed
// concurrently is never applied to.
func (s *Service) Apply(ctx context.Context, jobID uint, workerPhone, note string) (*entity.Application, error) {
	app := &entity.Application{
		JobID:       jobID,
		WorkerPhone: workerPhone,
		Note:        note,
		Status:      entity.ApplicationPending,
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("invalid application: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job entity.Job
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}
		if !job.IsOpen() {
			return ErrJobClosed
		}
		if job.PosterPhone == workerPhone {
			return ErrOwnJob
		}

		var existing int64
		if err := tx.Model(&entity.Application{}).
			Where("job_id = ? AND worker_phone = ?", jobID, workerPhone).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyApplied
		}

		return tx.Create(app).Error
	})
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, ErrAlreadyApplied
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrJobClosed),
		errors.Is(err, ErrAlreadyApplied), errors.Is(err, ErrOwnJob):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("apply: %w", err)
	}

	s.log.Info("application created",
		slog.Uint64("job_id", uint64(jobID)),
		slog.Uint64("application_id", uint64(app.ID)),
	)
	return app, nil
}

// CloseJob marks a job closed. Closing twice is not an error.
func (s *Service) CloseJob(ctx context.Context, jobID uint) error {
	res := s.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ?", jobID).
		Update("status", entity.JobStatusClosed)
	if res.Error != nil {
		return fmt.Errorf("close job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ApplicationCount returns how many workers applied to a job.
func (s *Service) ApplicationCount(ctx context.Context, jobID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entity.Application{}).Where("job_id = ?", jobID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

// JobsByPoster lists a poster's open jobs, newest first.
func (s *Service) JobsByPoster(ctx context.Context, phone string, limit int) ([]entity.Job, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var jobs []entity.Job
	err := s.db.WithContext(ctx).
		Where("poster_phone = ? AND status = ?", phone, entity.JobStatusOpen).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list poster jobs: %w", err)
	}
	return jobs, nil
}

// Applicants lists a job's applications, oldest first.
func (s *Service) Applicants(ctx context.Context, jobID uint, limit int) ([]entity.Application, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var apps []entity.Application
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at").Order("id").
		Limit(limit).
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	return apps, nil
}
