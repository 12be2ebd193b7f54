package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
)

// ── 拍摄场次业务错误 ──

var (
	ErrSessionNotFound  = errors.New("拍摄场次不存在")
	ErrSessionTimeRange = errors.New("开始时间必须早于结束时间")
	ErrStabNotFound     = errors.New("摄制组不存在")
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// FilmingService 拍摄场次业务接口
type FilmingService interface {
	GetSession(ctx context.Context, id string) (*dto.FilmingSessionResponse, error)
	Create(ctx context.Context, req *dto.CreateFilmingSessionRequest, callerID string) (*dto.FilmingSessionResponse, error)
}

type filmingService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFilmingService 创建 FilmingService 实例
func NewFilmingService(repo *repository.Repository, logger *zap.Logger) FilmingService {
	return &filmingService{repo: repo, logger: logger}
}

func (s *filmingService) GetSession(ctx context.Context, id string) (*dto.FilmingSessionResponse, error) {
	session, err := s.repo.FilmingSession.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询拍摄场次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toFilmingSessionResponse(session), nil
}

func (s *filmingService) Create(ctx context.Context, req *dto.CreateFilmingSessionRequest, callerID string) (*dto.FilmingSessionResponse, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, err
	}
	from, err := parseClock(req.TimeFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseClock(req.TimeTo)
	if err != nil {
		return nil, err
	}
	if from >= to {
		return nil, ErrSessionTimeRange
	}

	if req.StabID != nil {
		if _, err := s.repo.Stab.GetByID(ctx, *req.StabID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStabNotFound
			}
			return nil, err
		}
	}

	kind := req.Kind
	if kind == "" {
		kind = "regular"
	}
	session := &model.FilmingSession{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Date:        date,
		TimeFrom:    req.TimeFrom,
		TimeTo:      req.TimeTo,
		Kind:        kind,
		StabID:      req.StabID,
	}
	session.CreatedBy = &callerID

	if err := s.repo.FilmingSession.Create(ctx, session); err != nil {
		s.logger.Error("创建拍摄场次失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.FilmingSession.GetByID(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	return toFilmingSessionResponse(created), nil
}

func toFilmingSessionResponse(session *model.FilmingSession) *dto.FilmingSessionResponse {
	resp := &dto.FilmingSessionResponse{
		ID:          session.SessionID,
		Name:        session.Name,
		Description: session.Description,
		Location:    session.Location,
		Date:        session.Date.Format(dateLayout),
		TimeFrom:    formatClock(session.TimeFrom),
		TimeTo:      formatClock(session.TimeTo),
		Kind:        session.Kind,
	}
	if session.Stab != nil {
		resp.Stab = &dto.StabResponse{ID: session.Stab.StabID, Name: session.Stab.Name}
	}
	return resp
}
