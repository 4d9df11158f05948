// Package scenario loads declarative route trees and navigation scripts
// from YAML and replays them against the router.
//
// A scenario file describes the routes, the layers they depend on, and a
// list of navigation steps with the content expected after each one:
//
//	name: shop
//	start: /
//	layers:
//	  db:
//	    delay: 5ms
//	routes:
//	  - catch: oops
//	    routes:
//	      - route: /
//	        render: home
//	      - layout: shell
//	        provide: [db]
//	        routes:
//	          - route: /users/:id:int
//	            render: "user {id}"
//	steps:
//	  - expect: home
//	  - navigate: /users/7
//	    expect: "shell[user 7]"
//	  - navigate: /orders
//	    expect: "oops: R001"
//
// Groups apply their wrappers innermost first: layout, then catch, then
// provide, then prefix. Layouts and catches with the same name share one
// definition, so routes below them share one mounted instance.
package scenario
