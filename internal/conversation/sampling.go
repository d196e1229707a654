package conversation

import (
	"math/rand"

	"github.com/converse-demo/converse/internal/models"
)

const maxCanvasParticipants = 5

// sampleRange draws from [Min, Max). An empty range yields Min.
func sampleRange(rng *rand.Rand, r models.Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min)
}

// sampleParticipants picks a random subset sized from r. When the channel
// has no more humans than the minimum, everyone takes part.
func sampleParticipants(rng *rand.Rand, humans []models.Participant, r models.Range) []models.Participant {
	if len(humans) <= r.Min {
		return append([]models.Participant(nil), humans...)
	}

	k := sampleRange(rng, r)
	if k > len(humans) {
		k = len(humans)
	}

	picked := make([]models.Participant, 0, k)
	for _, i := range rng.Perm(len(humans))[:k] {
		picked = append(picked, humans[i])
	}
	return picked
}

func firstParticipants(pool []models.Participant, n int) []models.Participant {
	if len(pool) <= n {
		return pool
	}
	return pool[:n]
}

func pickTopic(rng *rand.Rand, topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	return topics[rng.Intn(len(topics))]
}
