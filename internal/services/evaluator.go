package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/soaringjerry/epds/internal/classifier"
	"github.com/soaringjerry/epds/internal/models"
)

// Classifier is the opaque trained model: one feature row in, one class id out.
type Classifier interface {
	Predict(row classifier.Row) (int, error)
}

// LabelDecoder turns a class id back into the label used at training time.
type LabelDecoder interface {
	Decode(ordinal int) (string, error)
}

// Evaluator produces a risk prediction from a finished questionnaire.
type Evaluator interface {
	Evaluate(ctx context.Context, profile models.Profile, answers []int) (models.Prediction, error)
}

// RiskEvaluator adapts the loaded model artifacts to Evaluator. It holds no
// mutable state.
type RiskEvaluator struct {
	model  Classifier
	labels LabelDecoder
}

func NewRiskEvaluator(model Classifier, labels LabelDecoder) *RiskEvaluator {
	return &RiskEvaluator{model: model, labels: labels}
}

// FeatureRow builds the training-schema row: Age, FamilySupport, Q1..Q10,
// EPDS_Score. The score is sent alongside the raw answers.
func FeatureRow(profile models.Profile, answers []int) (classifier.Row, error) {
	if err := ValidateAnswers(answers); err != nil {
		return nil, err
	}
	row := make(classifier.Row, 0, models.QuestionCount+3)
	row = append(row,
		classifier.Cell{Name: "Age", Value: profile.Age},
		classifier.Cell{Name: "FamilySupport", Value: string(profile.Support)},
	)
	for i, v := range answers {
		row = append(row, classifier.Cell{Name: fmt.Sprintf("Q%d", i+1), Value: v})
	}
	row = append(row, classifier.Cell{Name: "EPDS_Score", Value: EPDSScore(answers)})
	return row, nil
}

var tracer = otel.Tracer("github.com/soaringjerry/epds/internal/services")

func (e *RiskEvaluator) Evaluate(ctx context.Context, profile models.Profile, answers []int) (pred models.Prediction, err error) {
	ctx, span := tracer.Start(ctx, "risk.evaluate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "evaluate")
		} else {
			span.SetAttributes(attribute.Int("risk.ordinal", pred.Ordinal))
		}
		span.End()
	}()
	if e == nil || e.model == nil || e.labels == nil {
		return models.Prediction{}, errors.New("risk evaluator is not loaded")
	}
	if err := ctx.Err(); err != nil {
		return models.Prediction{}, err
	}
	row, err := FeatureRow(profile, answers)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("build features: %w", err)
	}
	ordinal, err := e.model.Predict(row)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("predict: %w", err)
	}
	label, err := e.labels.Decode(ordinal)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("decode class: %w", err)
	}
	return models.Prediction{Ordinal: ordinal, Label: label}, nil
}
