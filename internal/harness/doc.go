// Package harness runs conformance scenarios against every data source
// driver.
//
// A scenario creates fixture datasets, then runs query, oids and remove
// steps through the spatial processor. Each driver must meet the step
// expectations and produce the same result as the others; the shared result
// is compared with a golden file.
//
// # Scenario Format
//
//	name: nearby_parcels
//	description: "Parcels touching a box, by area"
//	datasets:
//	  - schema:
//	      name: parcels
//	      properties:
//	        - {name: id, type: int64}
//	        - {name: area, type: double}
//	        - {name: geom, type: geometry, geometry_type: polygon, srid: 4326}
//	      primary_key: {properties: [id]}
//	    rows:
//	      - {id: 1, area: 10.5, geom: "POLYGON((0 0,1 0,1 1,0 1,0 0))"}
//	steps:
//	  - name: touching
//	    query:
//	      dataset: parcels
//	      bbox: [0.5, 0.5, 3, 3]
//	      where: [{property: area, op: ">", value: 5}]
//	      order_by: ["-area"]
//	    expect:
//	      ids: [1]
//
// Steps report rows by the integer key property (default "id"). Failures
// carrying an error code, such as NOT_FOUND, are recorded as the step
// result; expect.error names the code a step must fail with.
//
// # Usage
//
//	sc, err := harness.LoadScenario("testdata/scenarios/nearby.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, failures, err := harness.New().RunAll(ctx, sc)
package harness
