package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"go-gin-auth-profile/internal/domain"
	"go-gin-auth-profile/internal/storage"
)

type ImageStore interface {
	Save(original string, r io.Reader) (string, error)
	Load(name string) ([]byte, string, error)
}

// Invalidator 网关侧用户缓存失效（未启用缓存时为 nil）
type Invalidator interface {
	Invalidate(ctx context.Context, email string) error
}

type ProfileUpdate struct {
	FullName    string
	Address     string
	PhoneNumber string
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type UserService struct {
	users  domain.UserRepository
	images ImageStore
	cache  Invalidator
	log    *zap.Logger
}

func NewUserService(users domain.UserRepository, images ImageStore, cache Invalidator, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{users: users, images: images, cache: cache, log: l}
}

func (s *UserService) mustFind(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *UserService) invalidate(ctx context.Context, email string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, email); err != nil {
		s.log.Warn("user cache invalidate failed", zap.Error(err))
	}
}

// UpdateProfile 三个字段整体替换
func (s *UserService) UpdateProfile(ctx context.Context, email string, in ProfileUpdate) (*domain.User, error) {
	u, err := s.mustFind(ctx, email)
	if err != nil {
		return nil, err
	}
	u.FullName = strings.TrimSpace(in.FullName)
	u.Address = strings.TrimSpace(in.Address)
	u.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, u.Email)
	return u, nil
}

func (s *UserService) UploadProfileImage(ctx context.Context, email, filename string, r io.Reader) (*domain.User, error) {
	u, err := s.mustFind(ctx, email)
	if err != nil {
		return nil, err
	}
	name, err := s.images.Save(filename, r)
	if err != nil {
		return nil, mapImageErr(err)
	}
	u.ProfileImage = name
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, u.Email)
	s.log.Info("profile image updated", zap.String("uid", u.ID), zap.String("file", name))
	return u, nil
}

// ProfileImage 未上传时返回默认头像
func (s *UserService) ProfileImage(ctx context.Context, email string) ([]byte, string, error) {
	u, err := s.mustFind(ctx, email)
	if err != nil {
		return nil, "", err
	}
	data, ct, err := s.images.Load(u.ProfileImage)
	if err != nil {
		return nil, "", mapImageErr(err)
	}
	return data, ct, nil
}

func (s *UserService) ImageByName(_ context.Context, name string) ([]byte, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", domain.ErrMalformedRequest
	}
	data, ct, err := s.images.Load(name)
	if err != nil {
		return nil, "", mapImageErr(err)
	}
	return data, ct, nil
}

func (s *UserService) ListUsers(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	if q.Limit <= 0 || q.Limit > maxPageSize {
		q.Limit = defaultPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.users.List(ctx, q)
}

// Ban 软删；之后该用户的令牌在网关解析阶段失效
func (s *UserService) Ban(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMalformedRequest
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrNotFound
	}
	ok, err := s.users.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	s.invalidate(ctx, u.Email)
	s.log.Info("user banned", zap.String("uid", id))
	return nil
}

func mapImageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, storage.ErrNotImage), errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrInvalidName):
		return fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	default:
		return err
	}
}
