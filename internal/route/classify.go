package route

import "dexnetwork/internal/domain"

// Classify route shape.
// simple: every token distinct. Otherwise the first token (walking the sequence) seen twice
// splits it into prefix . cycle . suffix at its first two occurrences; loop when both
// prefix and suffix are empty, spoon otherwise. new_list = [prefix, cycle, suffix]
func Classify(tokens []string) (domain.Label, domain.TokenList) {
	if len(tokens) < 2 {
		return domain.LabelError, domain.Flat()
	}

	count := make(map[string]int, len(tokens))
	for _, t := range tokens {
		count[t]++
	}

	repeated := ""
	for _, t := range tokens {
		if count[t] >= 2 {
			repeated = t
			break
		}
	}
	if repeated == "" {
		return domain.LabelSimple, domain.Flat()
	}

	first, second := -1, -1
	for i, t := range tokens {
		if t != repeated {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		second = i
		break
	}

	prefix := tokens[:first]
	cycle := tokens[first : second+1]
	suffix := tokens[second+1:]

	label := domain.LabelLoop
	if len(prefix) > 0 || len(suffix) > 0 {
		label = domain.LabelSpoon
	}

	return label, domain.Nested(prefix, cycle, suffix)
}
