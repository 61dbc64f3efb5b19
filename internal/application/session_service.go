package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	deliveryDomain "github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/deliverymaster/service-quote/internal/geocode"
	"github.com/deliverymaster/service-quote/internal/mapview"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minStops is the smallest allowed route: pickup plus one destination.
// Enforced here, at the action level, not inside the stop list.
const minStops = 2

// SessionDTO is the response representation of a quote session.
type SessionDTO struct {
	ID            uuid.UUID                `json:"id"`
	Stops         []deliveryDomain.Address `json:"stops"`
	FocusedStopID int64                    `json:"focused_stop_id,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// UpdateStopRequest carries a partial stop edit; nil fields are untouched.
type UpdateStopRequest struct {
	Value        *string `json:"value"`
	Complement   *string `json:"complement"`
	Instructions *string `json:"instructions"`
}

// quoteSession is the working state of one in-progress quote request: the
// stop list under edit, its geocode reconciler, the focused marker and the
// last accepted quote. All access goes through mu.
type quoteSession struct {
	id         uuid.UUID
	mu         sync.Mutex
	stops      *deliveryDomain.StopList
	focusedID  int64
	reconciler *geocode.Reconciler
	createdAt  time.Time

	applicantName string
	lastQuote     *deliveryDomain.CalculationResult
	lastOptions   deliveryDomain.QuoteOptions
}

// PendingGeocodes implements geocode.ListAccessor.
func (s *quoteSession) PendingGeocodes() []deliveryDomain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops.Unresolved()
}

// ApplyCoordinates implements geocode.ListAccessor.
func (s *quoteSession) ApplyCoordinates(id int64, expectedText string, coords deliveryDomain.Coordinates) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops.ResolveCoordinates(id, expectedText, coords)
}

// StopByID implements geocode.ListAccessor.
func (s *quoteSession) StopByID(id int64) (deliveryDomain.Address, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stop, ok := s.stops.Get(id)
	if !ok {
		return deliveryDomain.Address{}, 0, false
	}
	return stop, s.stops.Position(id), true
}

func (s *quoteSession) toDTO() SessionDTO {
	return SessionDTO{
		ID:            s.id,
		Stops:         s.stops.Addresses(),
		FocusedStopID: s.focusedID,
		CreatedAt:     s.createdAt,
	}
}

// SessionService owns the active quote sessions.
type SessionService struct {
	geocoder deliveryDomain.Geocoder
	quiet    time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*quoteSession
}

// NewSessionService creates a SessionService. quiet is the geocode debounce
// quiet period.
func NewSessionService(geocoder deliveryDomain.Geocoder, quiet time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		geocoder: geocoder,
		quiet:    quiet,
		logger:   logger,
		sessions: make(map[uuid.UUID]*quoteSession),
	}
}

// CreateSession starts a new quote session seeded with two empty stops.
func (s *SessionService) CreateSession() SessionDTO {
	session := &quoteSession{
		id:        uuid.New(),
		stops:     deliveryDomain.NewStopList(minStops),
		createdAt: time.Now().UTC(),
	}
	session.reconciler = geocode.NewReconciler(s.geocoder, session, s.quiet, s.logger)

	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()

	s.logger.Info("quote session created", zap.String("session_id", session.id.String()))

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.toDTO()
}

// GetSession returns the current state of a session.
func (s *SessionService) GetSession(id uuid.UUID) (SessionDTO, error) {
	session, err := s.find(id)
	if err != nil {
		return SessionDTO{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.toDTO(), nil
}

// CloseSession removes a session and stops its reconciler.
func (s *SessionService) CloseSession(id uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return deliveryDomain.NewNotFoundError("Session", id.String())
	}
	session.reconciler.Close()
	return nil
}

// AddStop appends a new empty stop to the session's route.
func (s *SessionService) AddStop(sessionID uuid.UUID) (SessionDTO, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return SessionDTO{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.stops.Add()
	return session.toDTO(), nil
}

// RemoveStop deletes a stop. The pickup-plus-one-destination minimum is
// enforced here.
func (s *SessionService) RemoveStop(sessionID uuid.UUID, stopID int64) (SessionDTO, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return SessionDTO{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.stops.Len() <= minStops {
		return SessionDTO{}, deliveryDomain.NewValidationError("a route needs at least a pickup and one destination")
	}
	if !session.stops.Remove(stopID) {
		return SessionDTO{}, deliveryDomain.NewNotFoundError("stop", strconv.FormatInt(stopID, 10))
	}
	if session.focusedID == stopID {
		session.focusedID = 0
	}
	return session.toDTO(), nil
}

// UpdateStop applies a partial edit to a stop. A text change clears the
// stop's coordinates and re-arms the geocode debounce.
func (s *SessionService) UpdateStop(sessionID uuid.UUID, stopID int64, req UpdateStopRequest) (SessionDTO, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return SessionDTO{}, err
	}

	session.mu.Lock()
	found := true
	textChanged := false
	if req.Value != nil {
		if session.stops.SetText(stopID, *req.Value) {
			textChanged = true
		} else {
			found = false
		}
	}
	if found && req.Complement != nil {
		found = session.stops.SetComplement(stopID, *req.Complement)
	}
	if found && req.Instructions != nil {
		found = session.stops.SetInstructions(stopID, *req.Instructions)
	}
	dto := session.toDTO()
	session.mu.Unlock()

	if !found {
		return SessionDTO{}, deliveryDomain.NewNotFoundError("stop", strconv.FormatInt(stopID, 10))
	}
	if textChanged {
		session.reconciler.NotifyTextChanged()
	}
	return dto, nil
}

// SwapStops exchanges the positions of two stops. A swap naming an absent
// stop (or the same stop twice) is a no-op.
func (s *SessionService) SwapStops(sessionID uuid.UUID, stopA, stopB int64) (SessionDTO, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return SessionDTO{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.stops.Swap(stopA, stopB)
	return session.toDTO(), nil
}

// FocusStop selects a stop as the map focus; stopID 0 clears the focus.
func (s *SessionService) FocusStop(sessionID uuid.UUID, stopID int64) (SessionDTO, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return SessionDTO{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.focusedID = stopID
	return session.toDTO(), nil
}

// LocateStop resolves a single stop immediately, bypassing the debounce,
// and focuses its marker. When the stop already has coordinates no request
// is made and only the focus shifts.
func (s *SessionService) LocateStop(ctx context.Context, sessionID uuid.UUID, stopID int64) (mapview.RenderPlan, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return mapview.RenderPlan{}, err
	}

	// The reconciler takes the session lock through the accessor; do not
	// hold it here.
	if _, err := session.reconciler.Locate(ctx, stopID); err != nil {
		return mapview.RenderPlan{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.focusedID = stopID
	return mapview.Project(session.stops.Addresses(), session.focusedID), nil
}

// MapPlan derives the current map render plan for a session.
func (s *SessionService) MapPlan(sessionID uuid.UUID) (mapview.RenderPlan, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return mapview.RenderPlan{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return mapview.Project(session.stops.Addresses(), session.focusedID), nil
}

// DropMarker handles a drag-and-drop release of a marker: when the drop
// lands within the pixel threshold of another marker, the two stops swap
// positions. The returned plan reflects the authoritative list order, so
// the dragged marker snaps back either way.
func (s *SessionService) DropMarker(
	sessionID uuid.UUID,
	stopID int64,
	drop deliveryDomain.Coordinates,
	zoom int,
) (mapview.RenderPlan, bool, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return mapview.RenderPlan{}, false, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	plan := mapview.Project(session.stops.Addresses(), session.focusedID)
	swapped := false
	if otherID, ok := mapview.DetectSwap(plan, stopID, drop, zoom); ok {
		swapped = session.stops.Swap(stopID, otherID)
		plan = mapview.Project(session.stops.Addresses(), session.focusedID)
	}
	return plan, swapped, nil
}

// Snapshot returns a deep copy of the session's stops in route order.
func (s *SessionService) Snapshot(sessionID uuid.UUID) ([]deliveryDomain.Address, error) {
	session, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.stops.Addresses(), nil
}

// StoreQuote caches an accepted quote on the session so a later
// confirmation uses exactly what the user saw.
func (s *SessionService) StoreQuote(
	sessionID uuid.UUID,
	applicantName string,
	result deliveryDomain.CalculationResult,
	opts deliveryDomain.QuoteOptions,
) error {
	session, err := s.find(sessionID)
	if err != nil {
		return err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.applicantName = applicantName
	session.lastQuote = &result
	session.lastOptions = opts
	return nil
}

// QuoteData returns the cached quote plus the address snapshot to confirm.
func (s *SessionService) QuoteData(sessionID uuid.UUID) (
	applicantName string,
	result deliveryDomain.CalculationResult,
	addresses []deliveryDomain.Address,
	opts deliveryDomain.QuoteOptions,
	err error,
) {
	session, findErr := s.find(sessionID)
	if findErr != nil {
		err = findErr
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.lastQuote == nil {
		err = deliveryDomain.NewValidationError("no quote has been calculated for this session")
		return
	}
	return session.applicantName, *session.lastQuote, session.stops.Addresses(), session.lastOptions, nil
}

func (s *SessionService) find(id uuid.UUID) (*quoteSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, deliveryDomain.NewNotFoundError("Session", id.String())
	}
	return session, nil
}
