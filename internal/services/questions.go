package services

import "github.com/soaringjerry/epds/internal/models"

// epdsItems is the Edinburgh Postnatal Depression Scale item bank in
// presentation order. Option values are the item's severity score.
var epdsItems = [models.QuestionCount]models.Question{
	{
		Prompt: "I have been able to laugh and see the funny side of things.",
		Options: []models.Option{
			{Label: "As much as I always could", Value: 0},
			{Label: "Not quite so much now", Value: 1},
			{Label: "Definitely not so much now", Value: 2},
			{Label: "Not at all", Value: 3},
		},
	},
	{
		Prompt: "I have looked forward with enjoyment to things",
		Options: []models.Option{
			{Label: "As much as I ever did", Value: 0},
			{Label: "Rather less than I used to", Value: 1},
			{Label: "Definitely less than I used to", Value: 2},
			{Label: "Hardly at all", Value: 3},
		},
	},
	{
		Prompt: "I have blamed myself unnecessarily when things went wrong",
		Options: []models.Option{
			{Label: "No, never", Value: 0},
			{Label: "Not very often", Value: 1},
			{Label: "Yes, some of the time", Value: 2},
			{Label: "Yes, most of the time", Value: 3},
		},
	},
	{
		Prompt: "I have been anxious or worried for no good reason",
		Options: []models.Option{
			{Label: "No, not at all", Value: 0},
			{Label: "Hardly ever", Value: 1},
			{Label: "Yes, sometimes", Value: 2},
			{Label: "Yes, very often", Value: 3},
		},
	},
	{
		Prompt: "I have felt scared or panicky for no very good reason",
		Options: []models.Option{
			{Label: "No, not at all", Value: 0},
			{Label: "No, not much", Value: 1},
			{Label: "Yes, sometimes", Value: 2},
			{Label: "Yes, quite a lot", Value: 3},
		},
	},
	{
		Prompt: "Things have been getting on top of me",
		Options: []models.Option{
			{Label: "No, I have been coping as well as ever", Value: 0},
			{Label: "No, most of the time I have coped quite well", Value: 1},
			{Label: "Yes, sometimes I haven't been coping as well as usual", Value: 2},
			{Label: "Yes, most of the time I haven't been able to cope at all", Value: 3},
		},
	},
	{
		Prompt: "I have been so unhappy that I have had difficulty sleeping",
		Options: []models.Option{
			{Label: "No, not at all", Value: 0},
			{Label: "Not very often", Value: 1},
			{Label: "Yes, sometimes", Value: 2},
			{Label: "Yes, most of the time", Value: 3},
		},
	},
	{
		Prompt: "I have felt sad or miserable",
		Options: []models.Option{
			{Label: "No, not at all", Value: 0},
			{Label: "Not very often", Value: 1},
			{Label: "Yes, quite often", Value: 2},
			{Label: "Yes, most of the time", Value: 3},
		},
	},
	{
		Prompt: "I have been so unhappy that I have been crying",
		Options: []models.Option{
			{Label: "No, never", Value: 0},
			{Label: "Only occasionally", Value: 1},
			{Label: "Yes, quite often", Value: 2},
			{Label: "Yes, most of the time", Value: 3},
		},
	},
	{
		Prompt: "The thought of harming myself has occurred to me",
		Options: []models.Option{
			{Label: "Never", Value: 0},
			{Label: "Hardly ever", Value: 1},
			{Label: "Sometimes", Value: 2},
			{Label: "Yes, quite often", Value: 3},
		},
	},
}

// Questions returns a copy of the item bank.
func Questions() []models.Question {
	out := make([]models.Question, 0, len(epdsItems))
	for _, q := range epdsItems {
		q.Options = append([]models.Option(nil), q.Options...)
		out = append(out, q)
	}
	return out
}

// QuestionAt returns question n (1-based).
func QuestionAt(n int) (models.Question, bool) {
	if n < 1 || n > models.QuestionCount {
		return models.Question{}, false
	}
	return epdsItems[n-1], true
}

// ResolveChoice maps an answer label of question n to its value. Only exact
// labels are accepted; there is no default.
func ResolveChoice(n int, label string) (int, bool) {
	q, ok := QuestionAt(n)
	if !ok || label == "" {
		return 0, false
	}
	for _, opt := range q.Options {
		if opt.Label == label {
			return opt.Value, true
		}
	}
	return 0, false
}
