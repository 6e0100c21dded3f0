package sim_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/san-kum/rtmsim/internal/sim"
)

func ExampleEngine_Run() {
	eng := sim.New()
	p := sim.DefaultParams()
	p.SelectionCount = 0

	res, err := eng.Run(p)
	switch {
	case errors.Is(err, sim.ErrEmptySelection):
		fmt.Println("nobody was selected")
	case err != nil:
		log.Fatal(err)
	default:
		fmt.Println(res.Summary.Text())
	}
	// Output: nobody was selected
}
