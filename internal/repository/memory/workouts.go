package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type workoutRepository struct {
	s *Store
}

// NewWorkoutRepository creates a catalog backed by the store.
func NewWorkoutRepository(s *Store) repository.WorkoutRepository {
	return &workoutRepository{s: s}
}

func (r *workoutRepository) Create(ctx context.Context, w *domain.Workout) (primitive.ObjectID, error) {
	if w.Name == "" || w.Category == "" {
		return primitive.NilObjectID, errors.New("workout name and category are required")
	}
	defer r.s.write(ctx)()

	w.ID = primitive.NewObjectID()
	now := r.s.now()
	w.CreatedAt = now
	w.UpdatedAt = now
	r.s.workouts[w.ID] = *w
	return w.ID, nil
}

func (r *workoutRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	defer r.s.read(ctx)()

	w, ok := r.s.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r *workoutRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Workout, error) {
	defer r.s.read(ctx)()

	seen := make(map[primitive.ObjectID]bool, len(ids))
	found := []domain.Workout{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if w, ok := r.s.workouts[id]; ok {
			found = append(found, w)
		}
	}
	return found, nil
}

func (r *workoutRepository) List(ctx context.Context, f domain.WorkoutFilter) ([]domain.Workout, error) {
	defer r.s.read(ctx)()

	list := []domain.Workout{}
	for _, w := range r.s.workouts {
		if f.Category != "" && !strings.EqualFold(w.Category, f.Category) {
			continue
		}
		if f.Difficulty != "" && !strings.EqualFold(w.Difficulty, f.Difficulty) {
			continue
		}
		if f.MaxDurationMinutes > 0 && w.DurationMinutes > f.MaxDurationMinutes {
			continue
		}
		list = append(list, w)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Category != list[j].Category {
			return list[i].Category < list[j].Category
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}
