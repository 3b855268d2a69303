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

type userRepository struct {
	s *Store
}

// NewUserRepository creates a directory backed by the store.
func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Name == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user name and role are required")
	}
	defer r.s.write(ctx)()

	user.ID = primitive.NewObjectID()
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return user.ID, nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	defer r.s.read(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) ListTrainers(ctx context.Context, activeOnly bool, specialization string) ([]domain.User, error) {
	defer r.s.read(ctx)()

	spec := strings.ToLower(specialization)
	trainers := []domain.User{}
	for _, u := range r.s.users {
		if u.Role != domain.RoleTrainer || (activeOnly && !u.Active) {
			continue
		}
		if spec != "" && !strings.Contains(strings.ToLower(u.Specialization), spec) {
			continue
		}
		trainers = append(trainers, u)
	}
	sort.Slice(trainers, func(i, j int) bool { return trainers[i].Name < trainers[j].Name })
	return trainers, nil
}
