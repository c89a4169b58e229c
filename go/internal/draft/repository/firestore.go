package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mcdev12/fpldraft/go/internal/models"
)

const (
	statesCollection  = "draft_states"
	picksCollection   = "picks"
	draftedCollection = "drafted_players"
)

var errMissingFirestoreClient = errors.New("firestore repository: client is missing")

type firestoreState struct {
	DivisionID  string    `firestore:"division_id"`
	CurrentPick int       `firestore:"current_pick"`
	IsActive    bool      `firestore:"is_active"`
	TurnOrder   []string  `firestore:"turn_order"`
	RoundsTotal int       `firestore:"rounds_total"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

type firestorePick struct {
	DivisionID string    `firestore:"division_id"`
	PickNumber int       `firestore:"pick_number"`
	UserID     string    `firestore:"user_id"`
	PlayerID   int       `firestore:"player_id"`
	PlayerName string    `firestore:"player_name"`
	PickedAt   time.Time `firestore:"picked_at"`
}

// FirestoreRepository keeps one document per division with picks in a
// subcollection. A drafted_players guard document per player enforces uniqueness.
type FirestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository wraps a Firestore client.
func NewFirestoreRepository(client *firestore.Client) (*FirestoreRepository, error) {
	if client == nil {
		return nil, errMissingFirestoreClient
	}
	return &FirestoreRepository{client: client}, nil
}

func (r *FirestoreRepository) stateDoc(divisionID string) *firestore.DocumentRef {
	return r.client.Collection(statesCollection).Doc(divisionID)
}

func pickDocID(n int) string {
	return fmt.Sprintf("%06d", n)
}

func (r *FirestoreRepository) ReadState(ctx context.Context, divisionID string) (*models.DraftState, error) {
	doc, err := r.stateDoc(divisionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get draft state document: %w", err)
	}
	return decodeFirestoreState(doc)
}

func (r *FirestoreRepository) ReadPicks(ctx context.Context, divisionID string) ([]models.DraftPick, error) {
	iter := r.stateDoc(divisionID).Collection(picksCollection).
		OrderBy("pick_number", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	picks := []models.DraftPick{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate draft picks: %w", err)
		}
		var fp firestorePick
		if err := doc.DataTo(&fp); err != nil {
			return nil, fmt.Errorf("failed to decode draft pick document: %w", err)
		}
		picks = append(picks, models.DraftPick{
			DivisionID: fp.DivisionID,
			PickNumber: fp.PickNumber,
			UserID:     fp.UserID,
			PlayerID:   fp.PlayerID,
			PlayerName: fp.PlayerName,
			Timestamp:  fp.PickedAt,
		})
	}
	return picks, nil
}

// AppendPick runs in a Firestore transaction. All reads happen before writes;
// a concurrent commit makes Firestore rerun the function, which then observes
// the moved current pick and returns ErrConflict.
func (r *FirestoreRepository) AppendPick(ctx context.Context, req AppendRequest) (*models.DraftState, error) {
	if err := validateAppend(req); err != nil {
		return nil, fmt.Errorf("invalid append request: %w", err)
	}

	stateRef := r.stateDoc(req.Pick.DivisionID)
	pickRef := stateRef.Collection(picksCollection).Doc(pickDocID(req.Pick.PickNumber))
	playerRef := stateRef.Collection(draftedCollection).Doc(strconv.Itoa(req.Pick.PlayerID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(stateRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get draft state document: %w", err)
		}
		current, err := decodeFirestoreState(doc)
		if err != nil {
			return err
		}
		if !current.IsActive || current.CurrentPick != req.ExpectedPick {
			return ErrConflict
		}

		if _, err := tx.Get(playerRef); err == nil {
			return ErrPlayerTaken
		} else if status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to check drafted player: %w", err)
		}

		if err := tx.Create(pickRef, firestorePick{
			DivisionID: req.Pick.DivisionID,
			PickNumber: req.Pick.PickNumber,
			UserID:     req.Pick.UserID,
			PlayerID:   req.Pick.PlayerID,
			PlayerName: req.Pick.PlayerName,
			PickedAt:   req.Pick.Timestamp,
		}); err != nil {
			return fmt.Errorf("failed to create draft pick document: %w", err)
		}
		if err := tx.Create(playerRef, map[string]interface{}{
			"pick_number": req.Pick.PickNumber,
			"user_id":     req.Pick.UserID,
		}); err != nil {
			return fmt.Errorf("failed to create drafted player document: %w", err)
		}
		return tx.Update(stateRef, []firestore.Update{
			{Path: "current_pick", Value: req.Next.CurrentPick},
			{Path: "is_active", Value: req.Next.IsActive},
			{Path: "updated_at", Value: req.Next.UpdatedAt},
		})
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, ErrConflict
		}
		return nil, err
	}

	next := cloneState(req.Next)
	return &next, nil
}

func (r *FirestoreRepository) CreateState(ctx context.Context, state models.DraftState) error {
	if err := validateState(state); err != nil {
		return fmt.Errorf("invalid draft state: %w", err)
	}

	_, err := r.stateDoc(state.DivisionID).Create(ctx, firestoreState{
		DivisionID:  state.DivisionID,
		CurrentPick: state.CurrentPick,
		IsActive:    state.IsActive,
		TurnOrder:   state.TurnOrder,
		RoundsTotal: state.RoundsTotal,
		UpdatedAt:   state.UpdatedAt,
	})
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create draft state document: %w", err)
	}
	return nil
}

func decodeFirestoreState(doc *firestore.DocumentSnapshot) (*models.DraftState, error) {
	var fs firestoreState
	if err := doc.DataTo(&fs); err != nil {
		return nil, fmt.Errorf("failed to decode draft state document: %w", err)
	}
	return &models.DraftState{
		DivisionID:  fs.DivisionID,
		CurrentPick: fs.CurrentPick,
		IsActive:    fs.IsActive,
		TurnOrder:   fs.TurnOrder,
		RoundsTotal: fs.RoundsTotal,
		UpdatedAt:   fs.UpdatedAt,
	}, nil
}
