package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/repcard/repcard/internal/domain"
)

const (
	frontPrefix = "F:"
	backPrefix  = "B:"
	hintPrefix  = "H:"
	titlePrefix = "# "
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingHint
)

// ParseFile reads a deck file from the given path.
func ParseFile(path string) (domain.Deck, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Deck{}, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from an io.Reader. The first "# " line becomes the
// deck title; cards are F:/B:/H: blocks separated by "---" or a new F:.
// The returned deck carries no ID; callers derive one from the source.
func Parse(r io.Reader) (domain.Deck, error) {
	scanner := bufio.NewScanner(r)
	var deck domain.Deck
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingFront:
			currentCard.Front = content
		case readingBack:
			currentCard.Back = content
		case readingHint:
			currentCard.Hint = content
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Front != "" {
			deck.Cards = append(deck.Cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if deck.Title == "" && currentState == seeking && strings.HasPrefix(line, titlePrefix) {
			deck.Title = strings.TrimSpace(line[len(titlePrefix):])
			continue
		}

		if line == "---" {
			finishCard()
			continue
		}

		isF := strings.HasPrefix(line, frontPrefix)
		isB := strings.HasPrefix(line, backPrefix)
		isH := strings.HasPrefix(line, hintPrefix)

		if isF || isB || isH {
			flushBlock()

			var prefix string
			switch {
			case isF:
				if currentState != seeking { // A new front always starts a new card
					finishCard()
				}
				currentState = readingFront
				prefix = frontPrefix
			case isB:
				currentState = readingBack
				prefix = backPrefix
			case isH:
				currentState = readingHint
				prefix = hintPrefix
			}

			lineContent := line[len(prefix):]
			if strings.HasPrefix(lineContent, " ") {
				lineContent = lineContent[1:]
			}
			currentBlock = append(currentBlock, lineContent)
		} else if currentState != seeking {
			currentBlock = append(currentBlock, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return domain.Deck{}, err
	}

	return deck, nil
}
